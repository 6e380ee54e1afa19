package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // Max request body in bytes
}

// StorageConfig represents datastore configuration
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	InMemory   bool   `mapstructure:"in_memory"`   // Keep everything in memory (tests, demos)
	SyncWrites bool   `mapstructure:"sync_writes"` // fsync every commit
	Timezone   string `mapstructure:"timezone"`    // Timezone period views bucket by (e.g., "Asia/Kolkata", "+05:30", "UTC")
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// NATS-specific options
	NATSStream string `mapstructure:"nats_stream"` // JetStream stream name (default: "MANGROVE")

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "mangrove")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "mangrove-ingest")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// IngestConfig controls the submission consumer
type IngestConfig struct {
	Enabled    bool          `mapstructure:"enabled"`     // Consume submissions in this process
	Subject    string        `mapstructure:"subject"`     // Subject submissions are published on
	MaxRetries int           `mapstructure:"max_retries"` // Handler attempts before a message is dropped
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required unless in_memory is set")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "nats", "redis", "memory":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}

	return nil
}

// Validate validates ingest configuration
func (c *IngestConfig) Validate() error {
	if c.Enabled && c.Subject == "" {
		return fmt.Errorf("ingest.subject is required when ingest is enabled")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("ingest.max_retries cannot be negative")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
