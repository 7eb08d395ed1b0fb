package quotes

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/publicapi-go/model"
	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// scriptedQuoteFetcher returns one pre-programmed batch of quotes per
// call, keyed by instrument, and records each call's instrument batch.
type scriptedQuoteFetcher struct {
	mu      sync.Mutex
	batches [][]model.Quote
	idx     int
	calls   [][]model.Instrument
}

func (f *scriptedQuoteFetcher) FetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]model.Instrument(nil), instruments...))
	i := f.idx
	f.idx++
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	if len(f.batches) > 0 {
		return f.batches[len(f.batches)-1], nil
	}
	return nil, nil
}

func (f *scriptedQuoteFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func aapl() model.Instrument {
	return model.Instrument{Symbol: "AAPL", Type: model.InstrumentTypeEquity, Currency: model.USD}
}

func msft() model.Instrument {
	return model.Instrument{Symbol: "MSFT", Type: model.InstrumentTypeEquity, Currency: model.USD}
}

func quoteAt(inst model.Instrument, last string) model.Quote {
	return model.Quote{Instrument: inst, Last: dec(last), Outcome: model.QuoteOutcomeSuccess}
}

func TestManager_PriceChange_OnlyOnActualDiff(t *testing.T) {
	f := &scriptedQuoteFetcher{batches: [][]model.Quote{
		{quoteAt(aapl(), "150.00")},
		{quoteAt(aapl(), "150.00")},
		{quoteAt(aapl(), "151.00")},
	}}
	m := NewManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	var changes atomic.Int32
	var last atomic.Value
	_, err := m.Subscribe([]model.Instrument{aapl()}, cfg, func(pc PriceChange) {
		changes.Add(1)
		last.Store(*pc.New.Last)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(30 * time.Millisecond)

	if got := changes.Load(); got != 1 {
		t.Fatalf("PriceChange count = %d, want 1 (only the 150->151 transition)", got)
	}
	want := decimal.RequireFromString("151.00")
	if got := last.Load().(decimal.Decimal); !got.Equal(want) {
		t.Fatalf("last reported price = %s, want %s", got, want)
	}
}

func TestManager_TwoInstruments_SingleBatchedFetch(t *testing.T) {
	f := &scriptedQuoteFetcher{batches: [][]model.Quote{
		{quoteAt(aapl(), "1"), quoteAt(msft(), "1")},
	}}
	m := NewManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	_, _ = m.Subscribe([]model.Instrument{aapl()}, cfg, func(PriceChange) {})
	_, _ = m.Subscribe([]model.Instrument{msft()}, cfg, func(PriceChange) {})

	deadline := time.Now().Add(2 * time.Second)
	for f.callCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(15 * time.Millisecond)

	f.mu.Lock()
	firstBatch := f.calls[0]
	f.mu.Unlock()
	if len(firstBatch) != 2 {
		t.Fatalf("first batch size = %d, want 2", len(firstBatch))
	}
}

func TestManager_UnknownSubscription(t *testing.T) {
	m := NewManager(&scriptedQuoteFetcher{})
	if err := m.Unsubscribe("nope"); err == nil {
		t.Fatal("Unsubscribe(unknown) = nil, want error")
	}
}

// Subscribing to " AAPL " and "AAPL" shares one registry subject: the
// symbol is trimmed on subscribe, so the per-tick batch has one entry.
func TestManager_SubscribeTrimsSymbols(t *testing.T) {
	f := &scriptedQuoteFetcher{batches: [][]model.Quote{{quoteAt(aapl(), "1")}}}
	m := NewManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	padded := model.Instrument{Symbol: " AAPL ", Type: model.InstrumentTypeEquity, Currency: model.USD}
	_, _ = m.Subscribe([]model.Instrument{aapl()}, cfg, func(PriceChange) {})
	_, _ = m.Subscribe([]model.Instrument{padded}, cfg, func(PriceChange) {})

	deadline := time.Now().Add(2 * time.Second)
	for f.callCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	f.mu.Lock()
	firstBatch := f.calls[0]
	f.mu.Unlock()
	if len(firstBatch) != 1 {
		t.Fatalf("first batch size = %d, want 1 (trimmed symbols share a subject)", len(firstBatch))
	}
	if firstBatch[0].Symbol != "AAPL" {
		t.Fatalf("batched symbol = %q, want %q", firstBatch[0].Symbol, "AAPL")
	}
}
