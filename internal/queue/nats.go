package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string // NATS URL (e.g., nats://localhost:4222)
	Username string // Optional authentication
	Password string // Optional authentication
	Stream   string // Stream name prefix (default: "MANGROVE")
}

// NATSQueue implements Queue interface using NATS JetStream
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	config        NATSConfig
	opts          Options
	streams       map[string]bool
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// newNATSQueue creates a new NATS queue instance with JetStream enabled
func newNATSQueue(cfg NATSConfig, opts Options) (*NATSQueue, error) {
	connOpts := []nats.Option{nats.Name("mangrove")}
	if cfg.Username != "" {
		connOpts = append(connOpts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, connOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn creates a new NATS queue instance with existing connection
func newNATSQueueWithConn(conn *nats.Conn, cfg NATSConfig, opts Options) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if cfg.Stream == "" {
		cfg.Stream = "MANGROVE"
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		config:        cfg,
		opts:          opts.withDefaults(),
		streams:       make(map[string]bool),
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// streamName returns the stream that stores subject
func (q *NATSQueue) streamName(subject string) string {
	return q.config.Stream + "-" + sanitizeConsumerName(subject)
}

// ensureStream creates the stream of subject once. JetStream drops
// publishes to subjects no stream captures.
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn.IsClosed() {
		return ErrClosed
	}
	if q.streams[subject] {
		return nil
	}

	name := q.streamName(subject)
	if _, err := q.js.StreamInfo(name); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to look up stream %s: %w", name, err)
		}
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
	}
	q.streams[subject] = true
	return nil
}

// Publish publishes a message and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes multiple messages asynchronously and waits for all to complete
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	var lastErr error
	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			lastErr = err
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			lastErr = err
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case err := <-future.Err():
			lastErr = err
		}
	}

	if lastErr != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to publish batch: %w", lastErr)
	}
	return successCount, nil
}

// Subscribe subscribes to a subject using a JetStream durable consumer.
// Failed messages are nak'ed and redelivered up to MaxDeliver times.
func (q *NATSQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	// Consumer names can only contain A-Z, a-z, 0-9, dash and underscore
	durableName := "consumer-" + sanitizeConsumerName(subject)
	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			attempt := uint64(0)
			if meta, metaErr := msg.Metadata(); metaErr == nil {
				attempt = meta.NumDelivered
			}
			q.opts.Logger.Warn("Message handler failed",
				"subject", msg.Subject,
				"attempt", attempt,
				"error", err)
			if q.opts.RetryDelay > 0 {
				_ = msg.NakWithDelay(q.opts.RetryDelay)
			} else {
				_ = msg.Nak()
			}
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(q.opts.MaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}
	q.subscriptions[subject] = sub

	go func() {
		<-ctx.Done()
		_ = q.Unsubscribe(subject)
	}()
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	delete(q.subscriptions, subject)

	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	return nil
}

// Close closes the NATS connection and all subscriptions
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Unsubscribe()
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// sanitizeConsumerName replaces invalid characters for consumer names
// Consumer names can only contain: A-Z, a-z, 0-9, dash (-) and underscore (_)
func sanitizeConsumerName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
