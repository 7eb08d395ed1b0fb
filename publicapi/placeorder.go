package publicapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/orders"
)

// PlaceOrder submits a single-leg order and returns a Handle bound to
// it, along with the order as the broker first acknowledged it. If
// req.OrderID is empty, a fresh idempotency key is generated so a
// retried request can't double-place the order.
func (c *Client) PlaceOrder(ctx context.Context, accountID string, req model.OrderRequest) (*orders.Handle, model.Order, error) {
	if req.OrderID == "" {
		req.OrderID = uuid.NewString()
	}
	ord, err := c.orderAPI.placeOrder(ctx, accountID, req)
	if err != nil {
		return nil, model.Order{}, err
	}
	return c.orderMgr.Handle(ord.Key()), ord, nil
}

// PlaceMultilegOrder submits a multi-leg options order (e.g. a vertical
// spread) as a single atomic order and returns a Handle bound to it.
func (c *Client) PlaceMultilegOrder(ctx context.Context, accountID string, req model.MultilegOrderRequest) (*orders.Handle, model.Order, error) {
	if req.OrderID == "" {
		req.OrderID = uuid.NewString()
	}
	ord, err := c.orderAPI.placeMultilegOrder(ctx, accountID, req)
	if err != nil {
		return nil, model.Order{}, err
	}
	return c.orderMgr.Handle(ord.Key()), ord, nil
}

// Handle returns a convenience wrapper bound to an existing order,
// without placing a new one.
func (c *Client) Handle(key orders.OrderKey) *orders.Handle {
	return c.orderMgr.Handle(key)
}

// CancelOrder requests cancellation of a previously placed order.
func (c *Client) CancelOrder(ctx context.Context, key orders.OrderKey) error {
	return c.orderAPI.CancelOrder(ctx, key)
}

// GetOrderStatus fetches the current status of a single order directly,
// bypassing the Order Subscription Manager.
func (c *Client) GetOrderStatus(ctx context.Context, key orders.OrderKey) (model.Order, error) {
	results, err := c.orderAPI.FetchOrders(ctx, []orders.OrderKey{key})
	if err != nil {
		return model.Order{}, err
	}
	for _, ord := range results {
		if ord.Key() == key {
			return ord, nil
		}
	}
	return model.Order{}, orders.ErrOrderNotFound
}
