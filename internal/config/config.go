// Package config loads the YAML configuration for a publicapi-go
// client instance: broker API connection details, default
// subscription polling policy for quotes and orders, and the optional
// event-log database.
package config

import "time"

// Config is the root configuration for a client instance.
type Config struct {
	Instance InstanceConfig  `yaml:"instance"`
	API      APIConfig       `yaml:"api"`
	Quotes   PollingDefaults `yaml:"quotes"`
	Orders   PollingDefaults `yaml:"orders"`
	EventLog EventLogConfig  `yaml:"event_log"`
}

// InstanceConfig identifies this client instance, for logging and the
// event log's audit trail.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// APIConfig holds the broker REST API connection and credentials.
type APIConfig struct {
	RestURL        string        `yaml:"rest_url"`
	LoginPath      string        `yaml:"login_path"`
	APIKey         string        `yaml:"api_key"`
	PrivateKeyPath string        `yaml:"private_key_path"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// PollingDefaults is the default polling/retry policy applied to
// subscriptions that don't specify their own.
type PollingDefaults struct {
	PollingFrequency   time.Duration `yaml:"polling_frequency"`
	RetryOnError       bool          `yaml:"retry_on_error"`
	MaxRetries         int           `yaml:"max_retries"`
	ExponentialBackoff bool          `yaml:"exponential_backoff"`
}

// EventLogConfig controls the optional batched audit log of dispatched
// price and order events.
type EventLogConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DB            DBConfig      `yaml:"db"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
