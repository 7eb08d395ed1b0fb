package subscription

import "time"

// Event is what gets dispatched to a subscriber's callback: the
// subscription it belongs to, which subject changed, its old (if any)
// and new observation, and when the change was detected. PriceChange
// and OrderUpdate in the quotes/orders packages are thin, named views
// over this.
//
// Err is set only on the one terminal event a subscription gets when
// it moves to ERROR: New is the zero value in that case and
// callers should check Err first.
type Event[S comparable, O any] struct {
	SubscriptionID string
	Subject        S
	Old            *O
	New            O
	At             time.Time
	Err            error
}
