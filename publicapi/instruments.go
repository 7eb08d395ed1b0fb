package publicapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

// wireInstrument is the {symbol, type[, currency]} shape shared by
// every endpoint that echoes back an instrument reference.
type wireInstrument struct {
	Symbol   string `json:"symbol"`
	Type     string `json:"type"`
	Currency string `json:"currency,omitempty"`
}

func (w wireInstrument) toModel() model.Instrument {
	cur := model.USD
	if w.Currency != "" {
		if parsed, err := model.ParseCurrency(w.Currency); err == nil {
			cur = parsed
		}
	}
	return model.Instrument{Symbol: w.Symbol, Type: model.InstrumentType(w.Type), Currency: cur}
}

func fromInstrument(ins model.Instrument) wireInstrument {
	w := wireInstrument{Symbol: ins.Symbol, Type: string(ins.Type)}
	if !ins.Currency.IsZero() {
		w.Currency = ins.Currency.String()
	}
	return w
}

type wireInstrumentDetail struct {
	Instrument          wireInstrument `json:"instrument"`
	Trading             string         `json:"trading"`
	FractionalTrading   string         `json:"fractional_trading"`
	OptionTrading       string         `json:"option_trading"`
	OptionSpreadTrading string         `json:"option_spread_trading"`
}

func (w wireInstrumentDetail) toModel() model.InstrumentDetail {
	return model.InstrumentDetail{
		Instrument:          w.Instrument.toModel(),
		Trading:             model.Trading(w.Trading),
		FractionalTrading:   model.Trading(w.FractionalTrading),
		OptionTrading:       model.Trading(w.OptionTrading),
		OptionSpreadTrading: model.Trading(w.OptionSpreadTrading),
	}
}

type instrumentsResponse struct {
	Instruments []wireInstrumentDetail `json:"instruments"`
}

// GetInstrument fetches tradability details for a single instrument.
func (c *Client) GetInstrument(ctx context.Context, symbol string, typ model.InstrumentType) (model.InstrumentDetail, error) {
	path := fmt.Sprintf("/instruments/%s/%s", url.PathEscape(symbol), url.PathEscape(string(typ)))
	var resp wireInstrumentDetail
	if err := c.http.Get(ctx, path, nil, &resp); err != nil {
		return model.InstrumentDetail{}, httpclient.ClassifyError(err)
	}
	return resp.toModel(), nil
}

// GetAllInstruments lists the tradable instrument catalog, optionally
// filtered by req.
func (c *Client) GetAllInstruments(ctx context.Context, req model.InstrumentsRequest) (model.InstrumentsResponse, error) {
	var query url.Values
	if len(req.TradingFilter) > 0 {
		query = url.Values{}
		filters := make([]string, len(req.TradingFilter))
		for i, f := range req.TradingFilter {
			filters[i] = string(f)
		}
		query.Set("trading_filter", strings.Join(filters, ","))
	}

	var resp instrumentsResponse
	if err := c.http.Get(ctx, "/instruments", query, &resp); err != nil {
		return model.InstrumentsResponse{}, httpclient.ClassifyError(err)
	}

	out := model.InstrumentsResponse{Instruments: make([]model.InstrumentDetail, 0, len(resp.Instruments))}
	for _, wi := range resp.Instruments {
		out.Instruments = append(out.Instruments, wi.toModel())
	}
	return out, nil
}
