package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout = 30 * time.Second
	DefaultMaxRetries = 3

	DefaultPollingFrequency = 1 * time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultBatchSize     = 500
	DefaultFlushInterval = 1 * time.Second
	DefaultBufferSize    = 5000
)

func (c *Config) applyDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	applyPollingDefaults(&c.Quotes)
	applyPollingDefaults(&c.Orders)

	if c.EventLog.Enabled {
		applyDBDefaults(&c.EventLog.DB)
		if c.EventLog.BatchSize == 0 {
			c.EventLog.BatchSize = DefaultBatchSize
		}
		if c.EventLog.FlushInterval == 0 {
			c.EventLog.FlushInterval = DefaultFlushInterval
		}
		if c.EventLog.BufferSize == 0 {
			c.EventLog.BufferSize = DefaultBufferSize
		}
	}
}

func applyPollingDefaults(p *PollingDefaults) {
	if p.PollingFrequency == 0 {
		p.PollingFrequency = DefaultPollingFrequency
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
