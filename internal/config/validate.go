package config

import (
	"errors"
	"fmt"

	"github.com/rickgao/publicapi-go/subscription"
)

// Validate checks that all required fields are set and values are
// within range.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}
	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.APIKey == "" {
		return errors.New("api.api_key is required")
	}
	if c.API.PrivateKeyPath == "" {
		return errors.New("api.private_key_path is required")
	}

	if err := validatePolling("quotes", c.Quotes); err != nil {
		return err
	}
	if err := validatePolling("orders", c.Orders); err != nil {
		return err
	}

	if c.EventLog.Enabled {
		if err := c.EventLog.DB.validate("event_log.db"); err != nil {
			return err
		}
		if c.EventLog.BatchSize < 1 {
			return errors.New("event_log.batch_size must be >= 1")
		}
		if c.EventLog.BufferSize < 1 {
			return errors.New("event_log.buffer_size must be >= 1")
		}
	}

	return nil
}

func validatePolling(prefix string, p PollingDefaults) error {
	if p.PollingFrequency < subscription.MinPollingFrequency || p.PollingFrequency > subscription.MaxPollingFrequency {
		return fmt.Errorf("%s.polling_frequency must be between %s and %s", prefix, subscription.MinPollingFrequency, subscription.MaxPollingFrequency)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must be >= 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ToEngineConfig converts a PollingDefaults into the subscription
// engine's Config shape.
func (p PollingDefaults) ToEngineConfig() subscription.Config {
	return subscription.Config{
		PollingFrequency:   p.PollingFrequency,
		RetryOnError:       p.RetryOnError,
		MaxRetries:         p.MaxRetries,
		ExponentialBackoff: p.ExponentialBackoff,
	}
}
