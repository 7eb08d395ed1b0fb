package orders

import (
	"context"
	"errors"
	"sync"

	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/subscription"
)

// ErrNoActions is returned by Handle.Cancel and Manager.CancelOrder
// when the manager was built without an OrderActions collaborator.
var ErrNoActions = errors.New("orders: manager has no OrderActions configured")

// ErrOrderNotFound is returned by status lookups when the fetcher's
// response does not include the requested order.
var ErrOrderNotFound = errors.New("orders: order not found")

// ErrOrderTerminal is returned by Handle.Cancel when the order is
// already known to be in a terminal status, so the cancellation can't
// take effect and the caller should notice the race.
var ErrOrderTerminal = errors.New("orders: order already in a terminal status")

// Handle bundles status lookups, cancellation, update subscriptions,
// and blocking waits for a single order, identified by account and
// order id, into one value.
type Handle struct {
	key OrderKey
	mgr *Manager

	mu        sync.Mutex
	subID     string
	lastKnown *model.Order
}

// observe records the most recent Order state the handle itself has
// seen, from a direct read, a delivered update, or a resolved wait.
func (h *Handle) observe(o model.Order) {
	h.mu.Lock()
	h.lastKnown = &o
	h.mu.Unlock()
}

// GetStatus fetches the order's current status directly, without
// requiring an active subscription.
func (h *Handle) GetStatus(ctx context.Context) (model.Order, error) {
	results, err := h.mgr.fetcher.FetchOrders(ctx, []OrderKey{h.key})
	if err != nil {
		return model.Order{}, err
	}
	for _, o := range results {
		if o.Key() == h.key {
			h.observe(o)
			return o, nil
		}
	}
	return model.Order{}, ErrOrderNotFound
}

// Cancel requests cancellation of the order. If the handle's most
// recently observed state already shows a terminal status, it fails
// with ErrOrderTerminal without calling the broker; a terminal order
// the handle hasn't observed yet is still rejected server-side.
func (h *Handle) Cancel(ctx context.Context) error {
	h.mu.Lock()
	last := h.lastKnown
	h.mu.Unlock()
	if last != nil && last.Status.IsTerminal() {
		return ErrOrderTerminal
	}
	return h.mgr.CancelOrder(ctx, h.key)
}

// SubscribeUpdates starts polling the order and delivers an
// OrderUpdate to onUpdate whenever its status, filled quantity, or
// average price changes. Calling it again while a subscription is
// already active replaces it.
func (h *Handle) SubscribeUpdates(cfg Config, onUpdate func(OrderUpdate)) error {
	id, err := h.mgr.Subscribe([]OrderKey{h.key}, cfg, func(u OrderUpdate) {
		if u.Err == nil {
			h.observe(u.New)
		}
		onUpdate(u)
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	prev := h.subID
	h.subID = id
	h.mu.Unlock()

	if prev != "" {
		_ = h.mgr.Unsubscribe(prev)
	}
	return nil
}

// Unsubscribe cancels this handle's update subscription, if any.
func (h *Handle) Unsubscribe() error {
	h.mu.Lock()
	id := h.subID
	h.subID = ""
	h.mu.Unlock()

	if id == "" {
		return nil
	}
	return h.mgr.Unsubscribe(id)
}

// WaitForStatus blocks until the order reaches target, ctx is
// cancelled, or the order's subscription is otherwise cancelled.
// It polls independently of any subscription created by
// SubscribeUpdates.
func (h *Handle) WaitForStatus(ctx context.Context, target model.OrderStatus) (model.Order, error) {
	return h.wait(ctx, func(o model.Order) bool { return o.Status == target })
}

// WaitForTerminalStatus blocks until the order reaches any terminal
// status (FILLED, CANCELLED, REJECTED, or EXPIRED).
func (h *Handle) WaitForTerminalStatus(ctx context.Context) (model.Order, error) {
	return h.wait(ctx, func(o model.Order) bool { return o.Status.IsTerminal() })
}

func (h *Handle) wait(ctx context.Context, pred func(model.Order) bool) (model.Order, error) {
	id, err := h.mgr.Subscribe([]OrderKey{h.key}, DefaultConfig(), func(OrderUpdate) {})
	if err != nil {
		return model.Order{}, err
	}
	defer func() { _ = h.mgr.Unsubscribe(id) }()

	ord, err := h.mgr.engine.WaitForCondition(ctx, id, pred)
	if err == nil {
		h.observe(ord)
		return ord, nil
	}
	if errors.Is(err, subscription.ErrWaitCancelled) || errors.Is(err, subscription.ErrSubscriptionNotFound) {
		// The subscription can be cancelled out from under the wait
		// when the order goes terminal between Subscribe and the wait
		// registering its condition. A direct read settles it.
		if current, ferr := h.GetStatus(ctx); ferr == nil && pred(current) {
			return current, nil
		}
	}
	return ord, err
}
