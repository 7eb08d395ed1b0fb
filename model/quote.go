package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteOutcome reports whether a fetched Quote reflects a live market
// or is standing in for a gap (the instrument was unknown, halted,
// etc). The Price Subscription Manager still treats an UNKNOWN outcome
// as a valid observation for diffing purposes.
type QuoteOutcome string

const (
	QuoteOutcomeSuccess QuoteOutcome = "SUCCESS"
	QuoteOutcomeUnknown QuoteOutcome = "UNKNOWN"
)

// Quote is the latest market data the core has seen for an Instrument.
// Every price field is optional (nil) when the upstream has no value to
// report for it.
type Quote struct {
	Instrument Instrument

	Last         *decimal.Decimal
	Bid          *decimal.Decimal
	BidSize      *int64
	Ask          *decimal.Decimal
	AskSize      *int64
	Volume       *int64
	OpenInterest *int64

	Outcome   QuoteOutcome
	Timestamp time.Time
}

// Key returns the Instrument this Quote was observed for, satisfying
// subscription.Keyed[Instrument] so the scheduler can match fetch
// results back to the subjects it asked for.
func (q Quote) Key() Instrument {
	return q.Instrument
}

// Equal reports whether two Quotes are indistinguishable for
// change-detection purposes: last, bid, bid_size, ask, and ask_size
// must all match (volume/open_interest are informational and don't
// gate a PriceChange).
func (q Quote) Equal(other Quote) bool {
	return decimalPtrEqual(q.Last, other.Last) &&
		decimalPtrEqual(q.Bid, other.Bid) &&
		int64PtrEqual(q.BidSize, other.BidSize) &&
		decimalPtrEqual(q.Ask, other.Ask) &&
		int64PtrEqual(q.AskSize, other.AskSize)
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
