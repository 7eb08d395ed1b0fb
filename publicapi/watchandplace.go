package publicapi

import (
	"context"
	"sync"

	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/orders"
	"github.com/rickgao/publicapi-go/quotes"
)

// WatchAndPlace subscribes to an instrument's price and places req once
// trigger reports true for a delivered quote, then unsubscribes. It
// blocks until the order is placed, trigger's subscription errors out,
// or ctx is cancelled — whichever happens first. It is built entirely
// out of PriceStream().Subscribe and PlaceOrder; the engine has no
// native notion of a conditional order.
func (c *Client) WatchAndPlace(
	ctx context.Context,
	instrument model.Instrument,
	cfg quotes.Config,
	trigger func(model.Quote) bool,
	accountID string,
	req model.OrderRequest,
) (*orders.Handle, model.Order, error) {
	type result struct {
		handle *orders.Handle
		order  model.Order
		err    error
	}
	done := make(chan result, 1)
	var once sync.Once

	subID, err := c.quoteMgr.Subscribe([]model.Instrument{instrument}, cfg, func(pc quotes.PriceChange) {
		if pc.Err != nil {
			once.Do(func() { done <- result{err: pc.Err} })
			return
		}
		if !trigger(pc.New) {
			return
		}
		once.Do(func() {
			handle, order, placeErr := c.PlaceOrder(ctx, accountID, req)
			done <- result{handle: handle, order: order, err: placeErr}
		})
	})
	if err != nil {
		return nil, model.Order{}, err
	}
	defer c.quoteMgr.Unsubscribe(subID)

	select {
	case <-ctx.Done():
		return nil, model.Order{}, ctx.Err()
	case r := <-done:
		return r.handle, r.order, r.err
	}
}
