package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mangrove/mangrove/internal/utils"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers       []string      // Kafka broker addresses
	GroupID       string        // Consumer group ID
	BatchSize     int           // Batch size for producer (default: 100)
	BatchTimeout  time.Duration // Batch timeout for producer (default: 10ms)
	RequiredAcks  int           // Required acks: 0=none, 1=leader, -1=all (default: 1)
	MaxRetries    int           // Max write attempts (default: 3)
	RetryBackoff  time.Duration // Backoff between retries (default: 100ms)
	CommitRetries int           // Consumer commit retries (default: 3)
}

// KafkaQueue implements Queue interface using Apache Kafka
type KafkaQueue struct {
	config        KafkaConfig
	opts          Options
	writers       map[string]*kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// newKafkaQueue creates a new Kafka queue instance
func newKafkaQueue(cfg KafkaConfig, opts Options) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.GroupID == "" {
		cfg.GroupID = utils.DefaultConsumerGroup
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = int(kafka.RequireOne)
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = utils.DefaultMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = utils.DefaultRetryBackoff
	}
	if cfg.CommitRetries == 0 {
		cfg.CommitRetries = 3
	}

	return &KafkaQueue{
		config:        cfg,
		opts:          opts.withDefaults(),
		writers:       make(map[string]*kafka.Writer),
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// topicName maps a subject to a Kafka topic; dots are legal in both.
func topicName(subject string) string {
	return subject
}

// writer returns existing writer or creates a new one for the topic
func (q *KafkaQueue) writer(topic string) *kafka.Writer {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w, exists := q.writers[topic]; exists {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(q.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              q.config.BatchSize,
		BatchTimeout:           q.config.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(q.config.RequiredAcks),
		MaxAttempts:            q.config.MaxRetries,
		AllowAutoTopicCreation: true,
	}
	q.writers[topic] = w
	return w
}

// Publish publishes a message to a Kafka topic
func (q *KafkaQueue) Publish(ctx context.Context, subject string, data []byte) error {
	topic := topicName(subject)
	err := q.writer(topic).WriteMessages(ctx, kafka.Message{Value: data, Time: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", topic, err)
	}
	return nil
}

// PublishBatch publishes multiple messages to Kafka topics
func (q *KafkaQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	byTopic := make(map[string][]kafka.Message)
	now := time.Now()
	for _, msg := range messages {
		topic := topicName(msg.Subject)
		byTopic[topic] = append(byTopic[topic], kafka.Message{Value: msg.Data, Time: now})
	}

	successCount := 0
	var lastErr error
	for topic, msgs := range byTopic {
		if err := q.writer(topic).WriteMessages(ctx, msgs...); err != nil {
			lastErr = err
			continue
		}
		successCount += len(msgs)
	}

	if lastErr != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to publish batch: %w", lastErr)
	}
	return successCount, nil
}

// Subscribe subscribes to a Kafka topic with consumer group. A message is
// committed after its handler succeeds or it ran out of attempts.
func (q *KafkaQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		GroupID:  q.config.GroupID,
		Topic:    topicName(subject),
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	ctx, cancel := context.WithCancel(ctx)
	q.readers[subject] = reader
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.consume(ctx, subject, reader, handler)
	}()
	return nil
}

// consume reads messages from Kafka in a loop
func (q *KafkaQueue) consume(ctx context.Context, subject string, reader *kafka.Reader, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.opts.Logger.Warn("Kafka fetch failed", "topic", reader.Config().Topic, "error", err)
			time.Sleep(q.config.RetryBackoff)
			continue
		}

		for attempt := 1; attempt <= q.opts.MaxDeliver; attempt++ {
			err = handler(ctx, subject, msg.Value)
			if err == nil || ctx.Err() != nil {
				break
			}
			q.opts.Logger.Warn("Message handler failed",
				"subject", subject,
				"offset", msg.Offset,
				"attempt", attempt,
				"error", err)
			if attempt < q.opts.MaxDeliver && !pause(ctx, q.retryDelay()) {
				break
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			q.opts.Logger.Error("Dropping message after max deliveries",
				"subject", subject,
				"offset", msg.Offset)
		}

		for i := 0; i < q.config.CommitRetries; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(q.config.RetryBackoff)
		}
	}
}

func (q *KafkaQueue) retryDelay() time.Duration {
	if q.opts.RetryDelay > 0 {
		return q.opts.RetryDelay
	}
	return q.config.RetryBackoff
}

// Unsubscribe unsubscribes from a Kafka topic
func (q *KafkaQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}

	cancel()
	if reader, ok := q.readers[subject]; ok {
		_ = reader.Close()
		delete(q.readers, subject)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close closes all Kafka connections
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	var lastErr error
	for subject, cancel := range q.subscriptions {
		cancel()
		if reader, ok := q.readers[subject]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
		}
		delete(q.subscriptions, subject)
		delete(q.readers, subject)
	}
	for topic, w := range q.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
		delete(q.writers, topic)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return lastErr
}
