package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// AggregationTimeout bounds a single aggregation request, row source I/O included
	AggregationTimeout = 20 * time.Second

	// PublishTimeout is the timeout for handing a submission to the queue
	PublishTimeout = 5 * time.Second

	// ShutdownTimeout is the graceful shutdown window for the HTTP server
	ShutdownTimeout = 10 * time.Second

	// HealthCheckTimeout bounds each dependency check of the health endpoint
	HealthCheckTimeout = 2 * time.Second
)

// =============================================================================
// Ingestion Constants
// =============================================================================

const (
	// DefaultSubmissionSubject is the subject submissions are published on
	DefaultSubmissionSubject = "mangrove.submissions"

	// DefaultConsumerGroup is the consumer group used by ingest workers
	DefaultConsumerGroup = "mangrove-ingest"

	// DefaultStreamPrefix prefixes Redis stream names
	DefaultStreamPrefix = "mangrove"

	// MaxSubmissionBatch is the maximum number of submissions accepted per request
	MaxSubmissionBatch = 1000
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of redelivery attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (single process, tests)
	QueueTypeMemory QueueType = "memory"
)
