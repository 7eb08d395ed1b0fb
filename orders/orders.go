package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/subscription"
)

// OrderKey identifies the subject of an order subscription.
type OrderKey = model.OrderKey

// OrderFetcher retrieves current status for a batch of orders in a
// single round trip. Implementations typically wrap a REST orders
// endpoint.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, keys []OrderKey) ([]model.Order, error)
}

// OrderActions places and cancels orders. It is separate from
// OrderFetcher because a read-only Manager (quote-only integrations,
// tests) may have no need to place or cancel anything.
type OrderActions interface {
	CancelOrder(ctx context.Context, key OrderKey) error
}

type orderFetcherAdapter struct {
	f OrderFetcher
}

func (a orderFetcherAdapter) Fetch(ctx context.Context, subjects []OrderKey) ([]model.Order, error) {
	return a.f.FetchOrders(ctx, subjects)
}

// OrderUpdate is the event delivered to an order subscription callback
// when a watched order's status, filled quantity, or average price
// changes. Err is set only on the one final event a subscription gets
// when it moves to ERROR.
type OrderUpdate struct {
	SubscriptionID string
	Key            OrderKey
	Old            *model.Order
	New            model.Order
	At             time.Time
	Err            error
}

func fromEngineEvent(ev subscription.Event[OrderKey, model.Order]) OrderUpdate {
	return OrderUpdate{
		SubscriptionID: ev.SubscriptionID,
		Key:            ev.Subject,
		Old:            ev.Old,
		New:            ev.New,
		At:             ev.At,
		Err:            ev.Err,
	}
}

// Config is an order subscription's polling/retry policy.
type Config = subscription.Config

// DefaultConfig returns the manager's default polling policy.
func DefaultConfig() Config { return subscription.DefaultConfig() }

// SubscriptionInfo is a snapshot of an order subscription's bookkeeping.
type SubscriptionInfo = subscription.SubscriptionInfo[OrderKey]

// Manager is the Order Subscription Manager.
type Manager struct {
	engine  *subscription.Manager[OrderKey, model.Order]
	fetcher OrderFetcher
	actions OrderActions
}

// Option configures a Manager at construction time.
type Option func(*options)

type options struct {
	clock    subscription.Clock
	log      *slog.Logger
	poolSize int
	refresh  subscription.AuthRefresher
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

func WithAuthRefresher(a subscription.AuthRefresher) Option {
	return func(o *options) { o.refresh = a }
}

// NewManager builds an Order Subscription Manager around fetcher.
// actions may be nil for read-only use; Handle.Cancel then always
// fails with ErrNoActions.
func NewManager(fetcher OrderFetcher, actions OrderActions, opts ...Option) *Manager {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	engineOpts := []subscription.Option[OrderKey, model.Order]{
		subscription.WithTerminalFunc[OrderKey, model.Order](func(ord model.Order) bool {
			return ord.Status.IsTerminal()
		}),
	}
	if o.clock != nil {
		engineOpts = append(engineOpts, subscription.WithClock[OrderKey, model.Order](o.clock))
	}
	if o.log != nil {
		engineOpts = append(engineOpts, subscription.WithLogger[OrderKey, model.Order](o.log))
	}
	if o.poolSize > 0 {
		engineOpts = append(engineOpts, subscription.WithPoolSize[OrderKey, model.Order](o.poolSize))
	}
	if o.refresh != nil {
		engineOpts = append(engineOpts, subscription.WithAuthRefresher[OrderKey, model.Order](o.refresh))
	}

	return &Manager{
		engine:  subscription.NewManager[OrderKey, model.Order](orderFetcherAdapter{f: fetcher}, engineOpts...),
		fetcher: fetcher,
		actions: actions,
	}
}

func (m *Manager) Start(ctx context.Context) error { return m.engine.Start(ctx) }
func (m *Manager) Stop()                           { m.engine.Stop() }

// Subscribe registers interest in orders' status, delivering an
// OrderUpdate whenever a watched order's status, filled quantity, or
// average price changes. The subscription is cancelled automatically
// once an order reaches a terminal status.
func (m *Manager) Subscribe(keys []OrderKey, cfg Config, onUpdate func(OrderUpdate)) (string, error) {
	cb := subscription.Sync[OrderKey, model.Order](func(ev subscription.Event[OrderKey, model.Order]) {
		onUpdate(fromEngineEvent(ev))
	})
	return m.engine.Subscribe(keys, cfg, cb)
}

// SubscribeAsync is Subscribe, but onUpdate runs off the shared
// callback pool.
func (m *Manager) SubscribeAsync(keys []OrderKey, cfg Config, onUpdate func(OrderUpdate)) (string, error) {
	cb := subscription.Async[OrderKey, model.Order](func(ev subscription.Event[OrderKey, model.Order]) {
		onUpdate(fromEngineEvent(ev))
	})
	return m.engine.Subscribe(keys, cfg, cb)
}

func (m *Manager) Unsubscribe(id string) error { return m.engine.Unsubscribe(id) }
func (m *Manager) UnsubscribeAll()             { m.engine.UnsubscribeAll() }
func (m *Manager) Pause(id string) error       { return m.engine.Pause(id) }
func (m *Manager) Resume(id string) error      { return m.engine.Resume(id) }

func (m *Manager) SetPollingFrequency(id string, freq time.Duration) error {
	return m.engine.SetPollingFrequency(id, freq)
}

func (m *Manager) GetActiveSubscriptions() []string { return m.engine.GetActiveSubscriptions() }

func (m *Manager) GetSubscriptionInfo(id string) (SubscriptionInfo, error) {
	return m.engine.GetSubscriptionInfo(id)
}

// CancelOrder requests cancellation of an order through the manager's
// OrderActions collaborator.
func (m *Manager) CancelOrder(ctx context.Context, key OrderKey) error {
	if m.actions == nil {
		return ErrNoActions
	}
	return m.actions.CancelOrder(ctx, key)
}

// Handle returns a convenience wrapper bound to a single order. It
// does not itself create a subscription; call SubscribeUpdates or
// WaitForStatus to start polling.
func (m *Manager) Handle(key OrderKey) *Handle {
	return &Handle{key: key, mgr: m}
}
