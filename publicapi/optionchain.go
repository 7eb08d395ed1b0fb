package publicapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

type optionExpirationsRequest struct {
	Instrument wireInstrument `json:"instrument"`
}

type optionExpirationsResponse struct {
	BaseSymbol  string   `json:"base_symbol"`
	Expirations []string `json:"expirations"`
}

// GetOptionExpirations lists the available expiration dates for an
// underlying instrument's option chain.
func (c *Client) GetOptionExpirations(ctx context.Context, req model.OptionExpirationsRequest) (model.OptionExpirationsResponse, error) {
	wire := optionExpirationsRequest{Instrument: fromInstrument(req.Instrument)}
	var resp optionExpirationsResponse
	if err := c.http.Post(ctx, "/option-expirations", wire, &resp); err != nil {
		return model.OptionExpirationsResponse{}, httpclient.ClassifyError(err)
	}
	return model.OptionExpirationsResponse{BaseSymbol: resp.BaseSymbol, Expirations: resp.Expirations}, nil
}

type wireGreeks struct {
	Delta             decimal.Decimal `json:"delta"`
	Gamma             decimal.Decimal `json:"gamma"`
	Theta             decimal.Decimal `json:"theta"`
	Vega              decimal.Decimal `json:"vega"`
	Rho               decimal.Decimal `json:"rho"`
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
}

type wireOptionGreeks struct {
	Symbol string     `json:"symbol"`
	Greeks wireGreeks `json:"greeks"`
}

func (w wireOptionGreeks) toModel() model.OptionGreeks {
	return model.OptionGreeks{
		Symbol: w.Symbol,
		Greeks: model.Greeks{
			Delta:             w.Greeks.Delta,
			Gamma:             w.Greeks.Gamma,
			Theta:             w.Greeks.Theta,
			Vega:              w.Greeks.Vega,
			Rho:               w.Greeks.Rho,
			ImpliedVolatility: w.Greeks.ImpliedVolatility,
		},
	}
}

type greeksResponse struct {
	Greeks []wireOptionGreeks `json:"greeks"`
}

// GetOptionGreeks fetches computed Greeks for a batch of option
// contract symbols.
func (c *Client) GetOptionGreeks(ctx context.Context, symbols []string) (model.GreeksResponse, error) {
	query := url.Values{}
	query.Set("symbols", strings.Join(symbols, ","))

	var resp greeksResponse
	if err := c.http.Get(ctx, "/greeks", query, &resp); err != nil {
		return model.GreeksResponse{}, httpclient.ClassifyError(err)
	}

	out := model.GreeksResponse{Greeks: make([]model.OptionGreeks, 0, len(resp.Greeks))}
	for _, wg := range resp.Greeks {
		out.Greeks = append(out.Greeks, wg.toModel())
	}
	return out, nil
}

// GetOptionGreek fetches Greeks for a single option contract symbol.
func (c *Client) GetOptionGreek(ctx context.Context, symbol string) (model.OptionGreeks, error) {
	resp, err := c.GetOptionGreeks(ctx, []string{symbol})
	if err != nil {
		return model.OptionGreeks{}, err
	}
	if len(resp.Greeks) == 0 {
		return model.OptionGreeks{}, fmt.Errorf("publicapi: no greeks found for %s", symbol)
	}
	return resp.Greeks[0], nil
}
