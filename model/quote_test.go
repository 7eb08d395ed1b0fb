package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func int64Ptr(i int64) *int64 {
	return &i
}

func TestQuoteEqual(t *testing.T) {
	base := Quote{
		Last:    decPtr("150.00"),
		Bid:     decPtr("149.99"),
		BidSize: int64Ptr(100),
		Ask:     decPtr("150.01"),
		AskSize: int64Ptr(200),
		Volume:  int64Ptr(1000000),
	}

	cases := []struct {
		name  string
		other Quote
		want  bool
	}{
		{"identical", base, true},
		{"different volume only", Quote{
			Last: base.Last, Bid: base.Bid, BidSize: base.BidSize,
			Ask: base.Ask, AskSize: base.AskSize, Volume: int64Ptr(999),
		}, true},
		{"different last", Quote{
			Last: decPtr("151.00"), Bid: base.Bid, BidSize: base.BidSize,
			Ask: base.Ask, AskSize: base.AskSize,
		}, false},
		{"different bid size", Quote{
			Last: base.Last, Bid: base.Bid, BidSize: int64Ptr(101),
			Ask: base.Ask, AskSize: base.AskSize,
		}, false},
		{"nil vs non-nil ask", Quote{
			Last: base.Last, Bid: base.Bid, BidSize: base.BidSize,
			Ask: nil, AskSize: base.AskSize,
		}, false},
		{"nil vs non-nil last", Quote{
			Last: nil, Bid: base.Bid, BidSize: base.BidSize,
			Ask: base.Ask, AskSize: base.AskSize,
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Equal(tc.other); got != tc.want {
				t.Errorf("base.Equal(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestQuoteEqualIgnoresTrailingZeros(t *testing.T) {
	a := Quote{Last: decPtr("150"), Bid: decPtr("149.5")}
	b := Quote{Last: decPtr("150.00"), Bid: decPtr("149.50")}
	if !a.Equal(b) {
		t.Error("decimal values equal in value but different in scale should compare equal")
	}
}

func TestQuoteKey(t *testing.T) {
	inst := Instrument{Symbol: "AAPL", Type: InstrumentTypeEquity, Currency: USD}
	q := Quote{Instrument: inst}
	if q.Key() != inst {
		t.Errorf("Key() = %v, want %v", q.Key(), inst)
	}
}
