package publicapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

type wireQuote struct {
	Symbol       string           `json:"symbol"`
	Last         *decimal.Decimal `json:"last,omitempty"`
	Bid          *decimal.Decimal `json:"bid,omitempty"`
	BidSize      *int64           `json:"bid_size,omitempty"`
	Ask          *decimal.Decimal `json:"ask,omitempty"`
	AskSize      *int64           `json:"ask_size,omitempty"`
	Volume       *int64           `json:"volume,omitempty"`
	OpenInterest *int64           `json:"open_interest,omitempty"`
	Outcome      string           `json:"outcome"`
	Timestamp    string           `json:"timestamp"`
}

type quotesResponse struct {
	Quotes []wireQuote `json:"quotes"`
}

func (q wireQuote) toModel(instrument model.Instrument) model.Quote {
	outcome := model.QuoteOutcomeUnknown
	if strings.EqualFold(q.Outcome, "SUCCESS") {
		outcome = model.QuoteOutcomeSuccess
	}

	return model.Quote{
		Instrument:   instrument,
		Last:         q.Last,
		Bid:          q.Bid,
		BidSize:      q.BidSize,
		Ask:          q.Ask,
		AskSize:      q.AskSize,
		Volume:       q.Volume,
		OpenInterest: q.OpenInterest,
		Outcome:      outcome,
		Timestamp:    parseTimestamp(q.Timestamp),
	}
}

// restQuoteFetcher implements quotes.QuoteFetcher over the REST
// market-data endpoint.
type restQuoteFetcher struct {
	http *httpclient.Client
}

func (f *restQuoteFetcher) FetchQuotes(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	symbols := make([]string, len(instruments))
	bySymbol := make(map[string]model.Instrument, len(instruments))
	for i, ins := range instruments {
		symbols[i] = ins.Symbol
		bySymbol[ins.Symbol] = ins
	}

	query := url.Values{}
	query.Set("symbols", strings.Join(symbols, ","))

	var resp quotesResponse
	if err := f.http.Get(ctx, "/quotes", query, &resp); err != nil {
		return nil, httpclient.ClassifyError(err)
	}

	quotes := make([]model.Quote, 0, len(resp.Quotes))
	for _, wq := range resp.Quotes {
		instrument, ok := bySymbol[wq.Symbol]
		if !ok {
			continue
		}
		quotes = append(quotes, wq.toModel(instrument))
	}
	return quotes, nil
}
