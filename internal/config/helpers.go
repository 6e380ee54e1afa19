package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	if c.Storage.InMemory {
		return nil
	}
	return os.MkdirAll(c.Storage.DataDir, 0755)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// ReadTimeoutOrDefault returns the configured read timeout or the default.
func (c *ServerConfig) ReadTimeoutOrDefault(def time.Duration) time.Duration {
	return durationOrDefault(c.ReadTimeout, def)
}

// WriteTimeoutOrDefault returns the configured write timeout or the default.
func (c *ServerConfig) WriteTimeoutOrDefault(def time.Duration) time.Duration {
	return durationOrDefault(c.WriteTimeout, def)
}

// Location returns the timezone period views bucket events by.
// Supports formats:
//   - IANA timezone names: "Asia/Kolkata", "America/New_York", "UTC"
//   - Offset format: "+05:30", "-05:00", "+00:00"
func (c *StorageConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}

	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc, nil
	}

	loc, err := parseOffsetTimezone(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	return loc, nil
}

// parseOffsetTimezone parses timezone offset format like "+09:00", "-05:00"
func parseOffsetTimezone(offset string) (*time.Location, error) {
	matches := offsetPattern.FindStringSubmatch(offset)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid offset format: %s", offset)
	}

	sign := 1
	if matches[1] == "-" {
		sign = -1
	}

	hours, _ := strconv.Atoi(matches[2])
	minutes, _ := strconv.Atoi(matches[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("offset out of range: %s", offset)
	}

	return time.FixedZone(offset, sign*(hours*3600+minutes*60)), nil
}

func durationOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
