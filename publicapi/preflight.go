package publicapi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

type preflightRequestWire struct {
	Instrument  wireInstrument   `json:"instrument"`
	Side        string           `json:"side"`
	Type        string           `json:"type"`
	TimeInForce string           `json:"time_in_force"`
	Quantity    decimal.Decimal  `json:"quantity"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
}

type preflightResponseWire struct {
	Instrument          wireInstrument  `json:"instrument"`
	OrderValue          decimal.Decimal `json:"order_value"`
	EstimatedCommission decimal.Decimal `json:"estimated_commission"`
	EstimatedCost       decimal.Decimal `json:"estimated_cost"`
}

func (w preflightResponseWire) toModel() model.PreflightResponse {
	return model.PreflightResponse{
		Instrument:          w.Instrument.toModel(),
		OrderValue:          w.OrderValue,
		EstimatedCommission: w.EstimatedCommission,
		EstimatedCost:       w.EstimatedCost,
	}
}

// Preflight estimates the cost and commission of a single-leg order
// without placing it.
func (c *Client) Preflight(ctx context.Context, accountID string, req model.PreflightRequest) (model.PreflightResponse, error) {
	wire := preflightRequestWire{
		Instrument:  fromInstrument(req.Instrument),
		Side:        string(req.Side),
		Type:        string(req.Type),
		TimeInForce: string(req.Expiration.TimeInForce),
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
	}
	path := fmt.Sprintf("/accounts/%s/preflight/single-leg", accountID)
	var resp preflightResponseWire
	if err := c.http.Post(ctx, path, wire, &resp); err != nil {
		return model.PreflightResponse{}, httpclient.ClassifyError(err)
	}
	return resp.toModel(), nil
}

// PreflightBatch runs Preflight for every request in reqs concurrently,
// one goroutine per request with no limit of its own, and returns one
// response per request in the same order. All preflights are started up
// front; once any one fails, the context the others run under is
// cancelled, and the first error encountered is returned.
func (c *Client) PreflightBatch(ctx context.Context, accountID string, reqs []model.PreflightRequest) ([]model.PreflightResponse, error) {
	out := make([]model.PreflightResponse, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := c.Preflight(gctx, accountID, req)
			if err != nil {
				return err
			}
			out[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PreflightMultileg estimates the cost and commission of a multi-leg
// options order without placing it.
func (c *Client) PreflightMultileg(ctx context.Context, accountID string, req model.MultilegPreflightRequest) (model.PreflightResponse, error) {
	legs := make([]leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = leg{Symbol: l.Instrument.Symbol, Side: string(l.Side), Ratio: l.Ratio}
	}
	wire := struct {
		Legs        []leg            `json:"legs"`
		Type        string           `json:"type"`
		TimeInForce string           `json:"time_in_force"`
		Quantity    decimal.Decimal  `json:"quantity"`
		LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	}{
		Legs:        legs,
		Type:        string(req.Type),
		TimeInForce: string(req.Expiration.TimeInForce),
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
	}
	path := fmt.Sprintf("/accounts/%s/preflight/multileg", accountID)
	var resp preflightResponseWire
	if err := c.http.Post(ctx, path, wire, &resp); err != nil {
		return model.PreflightResponse{}, httpclient.ClassifyError(err)
	}
	return resp.toModel(), nil
}
