package queue

import (
	"context"
	"errors"
	"time"

	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/utils"
)

// ErrClosed is returned when publishing to or subscribing on a closed queue.
var ErrClosed = errors.New("queue: closed")

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic. It returns once the
	// backend has accepted the message.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes multiple messages and waits for all to complete.
	// Returns the number of successfully published messages and any error
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	// Close closes the connection
	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe delivers messages of subject to handler until ctx is done or
	// the subject is unsubscribed. A handler error leaves the message to be
	// redelivered, up to the configured delivery limit.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles one incoming message
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

// Options are the backend independent settings of a queue.
type Options struct {
	// MaxDeliver is how many times a message is handed to a handler before
	// it is dropped. Defaults to utils.DefaultMaxRetries.
	MaxDeliver int
	// RetryDelay is the pause before a failed message is handed out again.
	RetryDelay time.Duration
	Logger     *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxDeliver <= 0 {
		o.MaxDeliver = utils.DefaultMaxRetries
	}
	if o.Logger == nil {
		o.Logger = logging.Global().With("component", "queue")
	}
	return o
}

// pause waits d or until ctx is done, reporting whether the full wait elapsed.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
