package publicapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

type wireTransaction struct {
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	Instrument    *wireInstrument `json:"instrument,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	SettledAt     string          `json:"settled_at"`
}

func (w wireTransaction) toModel() model.Transaction {
	t := model.Transaction{
		TransactionID: w.TransactionID,
		Type:          model.TransactionType(w.Type),
		Amount:        w.Amount,
		Description:   w.Description,
		SettledAt:     parseTimestamp(w.SettledAt),
	}
	if w.Instrument != nil {
		ins := w.Instrument.toModel()
		t.Instrument = &ins
	}
	return t
}

type historyResponse struct {
	Transactions  []wireTransaction `json:"transactions"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// GetHistory fetches one page of an account's transaction history.
func (c *Client) GetHistory(ctx context.Context, accountID string, req model.HistoryRequest) (model.HistoryResponsePage, error) {
	query := url.Values{}
	if req.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.PageToken != "" {
		query.Set("page_token", req.PageToken)
	}
	if req.Since != nil {
		query.Set("since", req.Since.Format(time.RFC3339))
	}
	if req.Until != nil {
		query.Set("until", req.Until.Format(time.RFC3339))
	}
	if len(query) == 0 {
		query = nil
	}

	path := fmt.Sprintf("/accounts/%s/history", accountID)
	var resp historyResponse
	if err := c.http.Get(ctx, path, query, &resp); err != nil {
		return model.HistoryResponsePage{}, httpclient.ClassifyError(err)
	}

	page := model.HistoryResponsePage{
		Transactions:  make([]model.Transaction, 0, len(resp.Transactions)),
		NextPageToken: resp.NextPageToken,
	}
	for _, wt := range resp.Transactions {
		page.Transactions = append(page.Transactions, wt.toModel())
	}
	return page, nil
}
