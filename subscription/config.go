package subscription

import "time"

// Polling frequency bounds shared by every subscription manager.
const (
	MinPollingFrequency = 100 * time.Millisecond
	MaxPollingFrequency = 60 * time.Second

	// MaxBackoff caps the exponential-backoff delay a failing
	// subscription's next_due_at can be pushed out to.
	MaxBackoff = 60 * time.Second
)

// Config is the per-subscription polling/retry policy, shared by the
// price and order managers.
type Config struct {
	// PollingFrequency is how often this subscription's subjects are
	// due for polling. Must be in [MinPollingFrequency,
	// MaxPollingFrequency].
	PollingFrequency time.Duration

	// RetryOnError controls whether a fetch failure is retried with
	// backoff (true) or moves the subscription to ERROR immediately
	// (false).
	RetryOnError bool

	// MaxRetries is the number of consecutive failures tolerated before
	// the subscription moves to ERROR, when RetryOnError is true.
	MaxRetries int

	// ExponentialBackoff selects exponential (polling_frequency *
	// 2^(failures-1), capped at MaxBackoff) vs fixed (polling_frequency)
	// backoff between retries.
	ExponentialBackoff bool
}

// DefaultConfig returns the default policy: retry on error, up to 3
// times, with exponential backoff.
func DefaultConfig() Config {
	return Config{
		PollingFrequency:   1 * time.Second,
		RetryOnError:       true,
		MaxRetries:         3,
		ExponentialBackoff: true,
	}
}

// Validate checks that the config's polling frequency is in range.
func (c Config) Validate() error {
	if c.PollingFrequency < MinPollingFrequency || c.PollingFrequency > MaxPollingFrequency {
		return ErrInvalidPollingFrequency
	}
	return nil
}

// backoff computes the next_due_at offset for a subscription that has
// just failed for the nth consecutive time (n >= 1).
func (c Config) backoff(n int) time.Duration {
	if !c.ExponentialBackoff {
		return c.PollingFrequency
	}
	d := c.PollingFrequency
	for i := 1; i < n; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	if d > MaxBackoff {
		d = MaxBackoff
	}
	return d
}
