package subscription

import "errors"

// Sentinel errors exposed by the subscription engine.
var (
	// ErrWaitTimeout is returned when a wait call exceeds its deadline.
	ErrWaitTimeout = errors.New("subscription: wait timed out")

	// ErrWaitCancelled is returned when the subscription a wait was
	// attached to was cancelled before the wait resolved.
	ErrWaitCancelled = errors.New("subscription: wait cancelled")

	// ErrSubscriptionNotFound is returned by operations that reference
	// an unknown subscription id and whose contract is to fail rather
	// than return a boolean.
	ErrSubscriptionNotFound = errors.New("subscription: not found")

	// ErrInvalidPollingFrequency is returned when a polling frequency
	// falls outside [MinPollingFrequency, MaxPollingFrequency].
	ErrInvalidPollingFrequency = errors.New("subscription: polling frequency out of range")

	// ErrEmptySubscription is returned when Subscribe is called with no
	// subjects.
	ErrEmptySubscription = errors.New("subscription: no subjects given")

	// ErrSubscriptionError is delivered to a subscription's waiters and
	// final dispatched Event when consecutive_failures exceeds its
	// retry budget and it moves to ERROR.
	ErrSubscriptionError = errors.New("subscription: moved to error status")
)
