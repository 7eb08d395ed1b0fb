package publicapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/orders"
)

type wireOrder struct {
	OrderID        string           `json:"order_id"`
	AccountID      string           `json:"account_id"`
	Symbol         string           `json:"symbol"`
	Currency       string           `json:"currency,omitempty"`
	Side           string           `json:"side"`
	Type           string           `json:"type"`
	TimeInForce    string           `json:"time_in_force"`
	Status         string           `json:"status"`
	Quantity       decimal.Decimal  `json:"quantity"`
	FilledQuantity decimal.Decimal  `json:"filled_quantity"`
	LimitPrice     *decimal.Decimal `json:"limit_price,omitempty"`
	AveragePrice   *decimal.Decimal `json:"average_price,omitempty"`
	RejectReason   string           `json:"reject_reason,omitempty"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

type ordersResponse struct {
	Orders []wireOrder `json:"orders"`
}

func (w wireOrder) toModel() model.Order {
	cur := model.USD
	if w.Currency != "" {
		if parsed, err := model.ParseCurrency(w.Currency); err == nil {
			cur = parsed
		}
	}
	return model.Order{
		ID:             w.OrderID,
		AccountID:      w.AccountID,
		Instrument:     model.Instrument{Symbol: w.Symbol, Type: model.InstrumentTypeEquity, Currency: cur},
		Side:           model.OrderSide(w.Side),
		Type:           model.OrderType(w.Type),
		TimeInForce:    model.TimeInForce(w.TimeInForce),
		Status:         model.OrderStatus(w.Status),
		Quantity:       w.Quantity,
		FilledQuantity: w.FilledQuantity,
		LimitPrice:     w.LimitPrice,
		AveragePrice:   w.AveragePrice,
		RejectReason:   w.RejectReason,
		CreatedAt:      parseTimestamp(w.CreatedAt),
		UpdatedAt:      parseTimestamp(w.UpdatedAt),
	}
}

// restOrderFetcher implements orders.OrderFetcher and
// orders.OrderActions over the REST orders endpoint.
type restOrderFetcher struct {
	http *httpclient.Client
}

func (f *restOrderFetcher) FetchOrders(ctx context.Context, keys []orders.OrderKey) ([]model.Order, error) {
	byAccount := make(map[string][]string)
	for _, k := range keys {
		byAccount[k.AccountID] = append(byAccount[k.AccountID], k.OrderID)
	}

	var out []model.Order
	for accountID, orderIDs := range byAccount {
		query := url.Values{}
		query.Set("account_id", accountID)
		query.Set("order_ids", strings.Join(orderIDs, ","))

		var resp ordersResponse
		if err := f.http.Get(ctx, "/orders", query, &resp); err != nil {
			return nil, httpclient.ClassifyError(err)
		}
		for _, wo := range resp.Orders {
			out = append(out, wo.toModel())
		}
	}
	return out, nil
}

func (f *restOrderFetcher) CancelOrder(ctx context.Context, key orders.OrderKey) error {
	path := fmt.Sprintf("/accounts/%s/orders/%s", key.AccountID, key.OrderID)
	if err := f.http.Delete(ctx, path); err != nil {
		return httpclient.ClassifyError(err)
	}
	return nil
}

type placeOrderRequest struct {
	OrderID     string           `json:"order_id,omitempty"`
	Symbol      string           `json:"symbol"`
	Side        string           `json:"side"`
	Type        string           `json:"type"`
	TimeInForce string           `json:"time_in_force"`
	GTCDate     string           `json:"gtc_date,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
}

type leg struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Ratio  int    `json:"ratio"`
}

type placeMultilegOrderRequest struct {
	OrderID     string           `json:"order_id,omitempty"`
	Legs        []leg            `json:"legs"`
	Type        string           `json:"type"`
	TimeInForce string           `json:"time_in_force"`
	GTCDate     string           `json:"gtc_date,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
}

func (f *restOrderFetcher) placeOrder(ctx context.Context, accountID string, req model.OrderRequest) (model.Order, error) {
	wire := placeOrderRequest{
		OrderID:     req.OrderID,
		Symbol:      req.Instrument.Symbol,
		Side:        string(req.Side),
		Type:        string(req.Type),
		TimeInForce: string(req.Expiration.TimeInForce),
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
	}
	if req.Expiration.GTCDate != nil {
		wire.GTCDate = req.Expiration.GTCDate.Format("2006-01-02")
	}

	var resp struct {
		Order wireOrder `json:"order"`
	}
	path := fmt.Sprintf("/accounts/%s/orders", accountID)
	if err := f.http.Post(ctx, path, wire, &resp); err != nil {
		return model.Order{}, httpclient.ClassifyError(err)
	}
	return resp.Order.toModel(), nil
}

func (f *restOrderFetcher) placeMultilegOrder(ctx context.Context, accountID string, req model.MultilegOrderRequest) (model.Order, error) {
	legs := make([]leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = leg{Symbol: l.Instrument.Symbol, Side: string(l.Side), Ratio: l.Ratio}
	}

	wire := placeMultilegOrderRequest{
		OrderID:     req.OrderID,
		Legs:        legs,
		Type:        string(req.Type),
		TimeInForce: string(req.Expiration.TimeInForce),
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
	}
	if req.Expiration.GTCDate != nil {
		wire.GTCDate = req.Expiration.GTCDate.Format("2006-01-02")
	}

	var resp struct {
		Order wireOrder `json:"order"`
	}
	path := fmt.Sprintf("/accounts/%s/orders/multileg", accountID)
	if err := f.http.Post(ctx, path, wire, &resp); err != nil {
		return model.Order{}, httpclient.ClassifyError(err)
	}
	return resp.Order.toModel(), nil
}
