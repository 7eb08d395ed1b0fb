package model

import "github.com/shopspring/decimal"

// BuyingPower reports the account's available purchasing power across
// cash, margin, and options.
type BuyingPower struct {
	CashOnlyBuyingPower decimal.Decimal
	BuyingPower         decimal.Decimal
	OptionsBuyingPower  decimal.Decimal
}

// Position is a single open holding in an account.
type Position struct {
	Instrument       Instrument
	Quantity         decimal.Decimal
	AverageCostBasis *decimal.Decimal
	MarketValue      *decimal.Decimal
}

// Portfolio is a snapshot of an account's buying power, holdings, and
// working orders.
type Portfolio struct {
	AccountID   string
	AccountType AccountType
	BuyingPower BuyingPower
	Equity      []Position
	Positions   []Position
	Orders      []Order
}
