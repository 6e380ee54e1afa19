package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mangrove/mangrove/internal/utils"
)

// EnvPrefix prefixes environment overrides, e.g. MANGROVE_SERVER_HTTP_PORT.
const EnvPrefix = "MANGROVE"

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")             // Current directory
		v.AddConfigPath("./configs")     // Project configs directory
		v.AddConfigPath("/etc/mangrove") // System-wide config
	}

	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults mirrors DefaultConfig so every key is known to viper and can
// be overridden from the environment.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.in_memory", d.Storage.InMemory)
	v.SetDefault("storage.sync_writes", d.Storage.SyncWrites)
	v.SetDefault("storage.timezone", d.Storage.Timezone)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.username", "")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.nats_stream", d.Queue.NATSStream)
	v.SetDefault("queue.redis_db", d.Queue.RedisDB)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.redis_consumer", "")
	v.SetDefault("queue.kafka_brokers", d.Queue.KafkaBrokers)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)

	v.SetDefault("ingest.enabled", d.Ingest.Enabled)
	v.SetDefault("ingest.subject", d.Ingest.Subject)
	v.SetDefault("ingest.max_retries", d.Ingest.MaxRetries)
	v.SetDefault("ingest.retry_delay", d.Ingest.RetryDelay)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.api_keys", d.Auth.APIKeys)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5984,
			ReadTimeout:  utils.DefaultRequestTimeout,
			WriteTimeout: utils.DefaultRequestTimeout,
			BodyLimit:    4 * 1024 * 1024,
		},
		Storage: StorageConfig{
			DataDir:  "./data",
			Timezone: "UTC",
		},
		Queue: QueueConfig{
			Type:         string(utils.QueueTypeNATS),
			URL:          "nats://localhost:4222",
			NATSStream:   "MANGROVE",
			RedisStream:  utils.DefaultStreamPrefix,
			RedisGroup:   utils.DefaultConsumerGroup,
			KafkaGroupID: utils.DefaultConsumerGroup,
		},
		Ingest: IngestConfig{
			Enabled:    true,
			Subject:    utils.DefaultSubmissionSubject,
			MaxRetries: utils.DefaultMaxRetries,
			RetryDelay: utils.DefaultRetryBackoff,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
	}
}
