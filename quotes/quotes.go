package quotes

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/subscription"
)

// QuoteFetcher is the collaborator that retrieves current quotes for
// a batch of instruments in a single round trip. Implementations
// typically wrap a REST market-data endpoint.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error)
}

// quoteFetcherAdapter satisfies subscription.Fetcher by delegating to
// a QuoteFetcher; it exists only to keep QuoteFetcher's public method
// name domain-specific (FetchQuotes) rather than the engine's generic
// Fetch.
type quoteFetcherAdapter struct {
	f QuoteFetcher
}

func (a quoteFetcherAdapter) Fetch(ctx context.Context, subjects []model.Instrument) ([]model.Quote, error) {
	return a.f.FetchQuotes(ctx, subjects)
}

// PriceChange is the event delivered to a price subscription callback
// when a watched instrument's quote changes. Err is set only on the
// one final event a subscription gets when it moves to ERROR.
type PriceChange struct {
	SubscriptionID string
	Instrument     model.Instrument
	Old            *model.Quote
	New            model.Quote
	At             time.Time
	Err            error
}

func fromEngineEvent(ev subscription.Event[model.Instrument, model.Quote]) PriceChange {
	return PriceChange{
		SubscriptionID: ev.SubscriptionID,
		Instrument:     ev.Subject,
		Old:            ev.Old,
		New:            ev.New,
		At:             ev.At,
		Err:            ev.Err,
	}
}

// Config is a price subscription's polling/retry policy.
type Config = subscription.Config

// DefaultConfig returns the manager's default polling policy.
func DefaultConfig() Config { return subscription.DefaultConfig() }

// Status is a price subscription's lifecycle state.
type Status = subscription.Status

// SubscriptionInfo is a snapshot of a price subscription's bookkeeping.
type SubscriptionInfo = subscription.SubscriptionInfo[model.Instrument]

// Manager is the Price Subscription Manager. Construct one with
// NewManager, call Start to begin polling, and Subscribe to start
// watching a set of instruments.
type Manager struct {
	engine *subscription.Manager[model.Instrument, model.Quote]
}

// Option configures a Manager at construction time.
type Option func(*options)

type options struct {
	clock    subscription.Clock
	log      *slog.Logger
	poolSize int
}

func WithClock(c subscription.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// NewManager builds a Price Subscription Manager around fetcher.
func NewManager(fetcher QuoteFetcher, opts ...Option) *Manager {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	var engineOpts []subscription.Option[model.Instrument, model.Quote]
	if o.clock != nil {
		engineOpts = append(engineOpts, subscription.WithClock[model.Instrument, model.Quote](o.clock))
	}
	if o.log != nil {
		engineOpts = append(engineOpts, subscription.WithLogger[model.Instrument, model.Quote](o.log))
	}
	if o.poolSize > 0 {
		engineOpts = append(engineOpts, subscription.WithPoolSize[model.Instrument, model.Quote](o.poolSize))
	}

	return &Manager{
		engine: subscription.NewManager[model.Instrument, model.Quote](
			quoteFetcherAdapter{f: fetcher},
			engineOpts...,
		),
	}
}

// Start begins the manager's poll loop. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	return m.engine.Start(ctx)
}

// Stop halts the poll loop.
func (m *Manager) Stop() {
	m.engine.Stop()
}

// normalize trims symbol and type whitespace so two callers watching
// "AAPL" and " AAPL " share one subject in the registry.
func normalize(instruments []model.Instrument) []model.Instrument {
	out := make([]model.Instrument, len(instruments))
	for i, ins := range instruments {
		ins.Symbol = strings.TrimSpace(ins.Symbol)
		ins.Type = model.InstrumentType(strings.TrimSpace(string(ins.Type)))
		out[i] = ins
	}
	return out
}

// Subscribe registers interest in instruments' quotes, delivering a
// PriceChange to onChange whenever a watched instrument's last, bid,
// bid size, ask, or ask size changes.
func (m *Manager) Subscribe(instruments []model.Instrument, cfg Config, onChange func(PriceChange)) (string, error) {
	cb := subscription.Sync[model.Instrument, model.Quote](func(ev subscription.Event[model.Instrument, model.Quote]) {
		onChange(fromEngineEvent(ev))
	})
	return m.engine.Subscribe(normalize(instruments), cfg, cb)
}

// SubscribeAsync is Subscribe, but onChange runs on a dedicated
// goroutine per subscription instead of the shared callback pool, so
// a slow handler doesn't reduce capacity for other subscriptions.
func (m *Manager) SubscribeAsync(instruments []model.Instrument, cfg Config, onChange func(PriceChange)) (string, error) {
	cb := subscription.Async[model.Instrument, model.Quote](func(ev subscription.Event[model.Instrument, model.Quote]) {
		onChange(fromEngineEvent(ev))
	})
	return m.engine.Subscribe(normalize(instruments), cfg, cb)
}

func (m *Manager) Unsubscribe(id string) error {
	return m.engine.Unsubscribe(id)
}

func (m *Manager) UnsubscribeAll() {
	m.engine.UnsubscribeAll()
}

func (m *Manager) Pause(id string) error {
	return m.engine.Pause(id)
}

func (m *Manager) Resume(id string) error {
	return m.engine.Resume(id)
}

func (m *Manager) SetPollingFrequency(id string, freq time.Duration) error {
	return m.engine.SetPollingFrequency(id, freq)
}

func (m *Manager) GetActiveSubscriptions() []string {
	return m.engine.GetActiveSubscriptions()
}

func (m *Manager) GetSubscriptionInfo(id string) (SubscriptionInfo, error) {
	return m.engine.GetSubscriptionInfo(id)
}

// LatestQuote returns the most recently polled quote for instrument,
// if it has been fetched at least once by an active subscription.
func (m *Manager) LatestQuote(instrument model.Instrument) (model.Quote, bool) {
	return m.engine.LatestObservation(instrument)
}
