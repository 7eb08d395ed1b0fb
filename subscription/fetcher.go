package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Keyed lets an observation report which subject it was fetched for, so
// the scheduler can match a batch fetch's results back to the subjects
// it asked about without relying on response order.
type Keyed[S comparable] interface {
	Key() S
}

// Observation is the constraint an engine observation type O must
// satisfy: it must be Keyed by the subject type S, and comparable to
// another O for change detection (model.Quote.Equal, model.Order.Equal).
type Observation[S comparable, O any] interface {
	Keyed[S]
	Equal(O) bool
}

// Fetcher is the collaborator the scheduler calls once per tick with
// the deduplicated set of due subjects. HTTP transport, JSON decoding,
// and the error taxonomy below are the fetcher's concern, not the
// engine's.
type Fetcher[S comparable, O any] interface {
	Fetch(ctx context.Context, subjects []S) ([]O, error)
}

// ErrorClass classifies a fetch failure for the scheduler's retry
// policy.
type ErrorClass int

const (
	ErrClassOther ErrorClass = iota
	ErrClassAuth
	ErrClassValidation
	ErrClassNotFound
	ErrClassRateLimited
	ErrClassServer
	ErrClassNetwork
)

// FetchError wraps a Fetcher failure with the classification the
// scheduler's retry/backoff policy needs. Fetchers that don't
// distinguish failure classes can return a plain error; the scheduler
// treats any non-FetchError as ErrClassOther.
type FetchError struct {
	Class ErrorClass

	// RetryAfter is the upstream's requested retry delay, only
	// meaningful when Class is ErrClassRateLimited. When set, it
	// overrides the computed backoff by taking the max of the two.
	RetryAfter time.Duration

	Err error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error (class %d)", e.Class)
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// classify extracts the ErrorClass and retry hint from an error
// returned by a Fetcher, defaulting to ErrClassOther with no hint for
// errors that aren't a *FetchError.
func classify(err error) (ErrorClass, time.Duration) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class, fe.RetryAfter
	}
	return ErrClassOther, 0
}
