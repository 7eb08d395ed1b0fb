package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a line item in an account's activity
// history.
type TransactionType string

const (
	TransactionTypeTrade    TransactionType = "TRADE"
	TransactionTypeDividend TransactionType = "DIVIDEND"
	TransactionTypeFee      TransactionType = "FEE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Transaction is a single entry in an account's activity history.
type Transaction struct {
	TransactionID string
	Type          TransactionType
	Instrument    *Instrument
	Amount        decimal.Decimal
	Description   string
	SettledAt     time.Time
}

// HistoryRequest filters and paginates a history query. The zero value
// requests the first page with the server's default page size.
type HistoryRequest struct {
	PageSize  int
	PageToken string
	Since     *time.Time
	Until     *time.Time
}

// HistoryResponsePage is one page of an account's transaction history.
type HistoryResponsePage struct {
	Transactions  []Transaction
	NextPageToken string
}
