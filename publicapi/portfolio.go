package publicapi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

type wireBuyingPower struct {
	CashOnlyBuyingPower decimal.Decimal `json:"cash_only_buying_power"`
	BuyingPower         decimal.Decimal `json:"buying_power"`
	OptionsBuyingPower  decimal.Decimal `json:"options_buying_power"`
}

type wirePosition struct {
	Instrument       wireInstrument   `json:"instrument"`
	Quantity         decimal.Decimal  `json:"quantity"`
	AverageCostBasis *decimal.Decimal `json:"average_cost_basis,omitempty"`
	MarketValue      *decimal.Decimal `json:"market_value,omitempty"`
}

func (w wirePosition) toModel() model.Position {
	return model.Position{
		Instrument:       w.Instrument.toModel(),
		Quantity:         w.Quantity,
		AverageCostBasis: w.AverageCostBasis,
		MarketValue:      w.MarketValue,
	}
}

type portfolioResponse struct {
	AccountID   string          `json:"account_id"`
	AccountType string          `json:"account_type"`
	BuyingPower wireBuyingPower `json:"buying_power"`
	Equity      []wirePosition  `json:"equity"`
	Positions   []wirePosition  `json:"positions"`
	Orders      []wireOrder     `json:"orders"`
}

// GetPortfolio fetches an account's current buying power, holdings,
// and working orders.
func (c *Client) GetPortfolio(ctx context.Context, accountID string) (model.Portfolio, error) {
	var resp portfolioResponse
	path := fmt.Sprintf("/accounts/%s/portfolio", accountID)
	if err := c.http.Get(ctx, path, nil, &resp); err != nil {
		return model.Portfolio{}, httpclient.ClassifyError(err)
	}

	equity := make([]model.Position, 0, len(resp.Equity))
	for _, p := range resp.Equity {
		equity = append(equity, p.toModel())
	}
	positions := make([]model.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		positions = append(positions, p.toModel())
	}
	orders := make([]model.Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		orders = append(orders, o.toModel())
	}

	return model.Portfolio{
		AccountID:   resp.AccountID,
		AccountType: model.AccountType(resp.AccountType),
		BuyingPower: model.BuyingPower{
			CashOnlyBuyingPower: resp.BuyingPower.CashOnlyBuyingPower,
			BuyingPower:         resp.BuyingPower.BuyingPower,
			OptionsBuyingPower:  resp.BuyingPower.OptionsBuyingPower,
		},
		Equity:    equity,
		Positions: positions,
		Orders:    orders,
	}, nil
}
