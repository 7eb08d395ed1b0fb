package publicapi

import (
	"context"

	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
)

type wireAccount struct {
	AccountID string `json:"account_id"`
	Type      string `json:"account_type"`
}

type accountsResponse struct {
	Accounts []wireAccount `json:"accounts"`
}

func (w wireAccount) toModel() model.Account {
	return model.Account{AccountID: w.AccountID, Type: model.AccountType(w.Type)}
}

// GetAccounts lists every account accessible to the authenticated
// credentials.
func (c *Client) GetAccounts(ctx context.Context) (model.AccountsResponse, error) {
	var resp accountsResponse
	if err := c.http.Get(ctx, "/trading/account", nil, &resp); err != nil {
		return model.AccountsResponse{}, httpclient.ClassifyError(err)
	}
	out := model.AccountsResponse{Accounts: make([]model.Account, 0, len(resp.Accounts))}
	for _, wa := range resp.Accounts {
		out.Accounts = append(out.Accounts, wa.toModel())
	}
	return out, nil
}
