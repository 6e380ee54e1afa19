package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mangrove/mangrove/internal/utils"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379)
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "mangrove")
	Group    string // Consumer group name (default: "mangrove-ingest")
	Consumer string // Consumer name (default: hostname)
}

// RedisQueue implements Queue interface using Redis Streams
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	opts          Options
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// newRedisQueue creates a new Redis Streams queue instance
func newRedisQueue(cfg RedisConfig, opts Options) (*RedisQueue, error) {
	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Plain host:port
		redisOpts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = utils.DefaultStreamPrefix
	}
	if cfg.Group == "" {
		cfg.Group = utils.DefaultConsumerGroup
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}

	return &RedisQueue{
		client:        client,
		config:        cfg,
		opts:          opts.withDefaults(),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// streamName converts a subject to a Redis stream name
func (q *RedisQueue) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", q.config.Stream, subject)
}

func xaddArgs(stream string, data []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}
}

// Publish publishes a message to a Redis stream
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamName(subject)
	if err := q.client.XAdd(ctx, xaddArgs(stream, data)).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// PublishBatch publishes multiple messages using Redis pipeline
func (q *RedisQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, xaddArgs(q.streamName(msg.Subject), msg.Data))
	}

	cmds, err := pipe.Exec(ctx)
	successCount := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			successCount++
		}
	}
	if err != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}
	return successCount, nil
}

// Subscribe subscribes to a Redis stream with consumer group. Entries left
// pending by an earlier run of this consumer are handled first.
func (q *RedisQueue) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamName(subject)
	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.readStream(ctx, subject, stream, handler)
	}()
	return nil
}

// readStream reads the consumer's pending entries ("0") until none are
// left, then new entries (">").
func (q *RedisQueue) readStream(ctx context.Context, subject, stream string, handler MessageHandler) {
	attempts := make(map[string]int)
	cursor := "0"
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, cursor},
			Count:    100,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				q.opts.Logger.Warn("Redis stream read failed", "stream", stream, "error", err)
				time.Sleep(utils.DefaultRetryBackoff)
			}
			continue
		}

		failed := false
		for _, s := range streams {
			if cursor == "0" && len(s.Messages) == 0 {
				cursor = ">"
			}
			for _, msg := range s.Messages {
				if q.handle(ctx, subject, stream, msg, handler, attempts) {
					continue
				}
				failed = true
			}
		}
		// failed entries stay pending; re-read them before new ones
		if failed {
			cursor = "0"
		}
	}
}

// handle runs handler on msg and reports whether msg is done with.
func (q *RedisQueue) handle(ctx context.Context, subject, stream string, msg redis.XMessage, handler MessageHandler, attempts map[string]int) bool {
	data, ok := msg.Values["data"].(string)
	if !ok {
		q.client.XAck(ctx, stream, q.config.Group, msg.ID)
		return true
	}

	if err := handler(ctx, subject, []byte(data)); err != nil {
		attempts[msg.ID]++
		q.opts.Logger.Warn("Message handler failed",
			"subject", subject,
			"id", msg.ID,
			"attempt", attempts[msg.ID],
			"error", err)
		if attempts[msg.ID] < q.opts.MaxDeliver {
			pause(ctx, q.opts.RetryDelay)
			return false
		}
		q.opts.Logger.Error("Dropping message after max deliveries",
			"subject", subject,
			"id", msg.ID)
	}

	delete(attempts, msg.ID)
	q.client.XAck(ctx, stream, q.config.Group, msg.ID)
	return true
}

// Unsubscribe unsubscribes from a subject
func (q *RedisQueue) Unsubscribe(subject string) error {
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

// Close stops all readers and closes the Redis connection
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}
