package queue

import (
	"context"
	"fmt"
	"sync"
)

// memoryBuffer is the per-subject channel capacity.
const memoryBuffer = 10000

// MemoryQueue implements Queue interface using in-memory channels
// This is useful for testing and development without external dependencies
type MemoryQueue struct {
	opts          Options
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	closed        bool
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// newMemoryQueue creates a new in-memory queue instance
func newMemoryQueue(opts Options) *MemoryQueue {
	return &MemoryQueue{
		opts:          opts.withDefaults(),
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// channel returns the channel of subject, creating it. Callers hold q.mu.
func (q *MemoryQueue) channel(subject string) chan []byte {
	if ch, exists := q.channels[subject]; exists {
		return ch
	}
	ch := make(chan []byte, memoryBuffer)
	q.channels[subject] = ch
	return ch
}

// Publish publishes a message to an in-memory channel
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Make a copy of data to avoid race conditions
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	select {
	case q.channel(subject) <- dataCopy:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// PublishBatch publishes multiple messages
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	var lastErr error
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			lastErr = err
			continue
		}
		successCount++
	}
	if lastErr != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to publish batch: %w", lastErr)
	}
	return successCount, nil
}

// Subscribe consumes an in-memory channel in the background. A failing
// message is retried in place up to MaxDeliver times.
func (q *MemoryQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ch := q.channel(subject)
	ctx, cancel := context.WithCancel(ctx)
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				q.deliver(ctx, subject, data, handler)
			}
		}
	}()

	return nil
}

func (q *MemoryQueue) deliver(ctx context.Context, subject string, data []byte, handler MessageHandler) {
	for attempt := 1; attempt <= q.opts.MaxDeliver; attempt++ {
		err := handler(ctx, subject, data)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		q.opts.Logger.Warn("Message handler failed",
			"subject", subject,
			"attempt", attempt,
			"error", err)
		if attempt < q.opts.MaxDeliver && !pause(ctx, q.opts.RetryDelay) {
			return
		}
	}
	q.opts.Logger.Error("Dropping message after max deliveries",
		"subject", subject,
		"max_deliver", q.opts.MaxDeliver)
}

// Unsubscribe unsubscribes from a channel
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all subscriptions and waits for in-flight handlers.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// PendingCount returns the number of undelivered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
