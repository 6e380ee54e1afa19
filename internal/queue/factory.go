package queue

import (
	"fmt"
	"strings"

	"github.com/mangrove/mangrove/internal/config"
	"github.com/mangrove/mangrove/internal/utils"
)

// NewQueue creates a new Queue instance based on configuration
// Default is NATS if type is not specified
func NewQueue(cfg config.QueueConfig, opts Options) (Queue, error) {
	opts = opts.withDefaults()
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	// Default to NATS if not specified
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	// Typed nil pointers must not leak out as non-nil interfaces
	switch queueType {
	case utils.QueueTypeNATS:
		q, err := newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Stream:   cfg.NATSStream,
		}, opts)
		if err != nil {
			return nil, err
		}
		return q, nil

	case utils.QueueTypeRedis:
		q, err := newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		}, opts)
		if err != nil {
			return nil, err
		}
		return q, nil

	case utils.QueueTypeKafka:
		q, err := newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		}, opts)
		if err != nil {
			return nil, err
		}
		return q, nil

	case utils.QueueTypeMemory:
		return newMemoryQueue(opts), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}

// NewPublisher creates a new Publisher instance based on configuration
// This is a convenience function when only publishing is needed
func NewPublisher(cfg config.QueueConfig, opts Options) (Publisher, error) {
	return NewQueue(cfg, opts)
}
