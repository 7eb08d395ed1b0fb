package model

import "github.com/shopspring/decimal"

// OptionExpirationsRequest asks for the available expiration dates for
// an underlying instrument's option chain.
type OptionExpirationsRequest struct {
	Instrument Instrument
}

// OptionExpirationsResponse lists an underlying's available option
// expiration dates, formatted YYYY-MM-DD.
type OptionExpirationsResponse struct {
	BaseSymbol  string
	Expirations []string
}

// Greeks is a single option contract's computed risk sensitivities.
type Greeks struct {
	Delta             decimal.Decimal
	Gamma             decimal.Decimal
	Theta             decimal.Decimal
	Vega              decimal.Decimal
	Rho               decimal.Decimal
	ImpliedVolatility decimal.Decimal
}

// OptionGreeks pairs an option contract symbol with its computed
// Greeks.
type OptionGreeks struct {
	Symbol string
	Greeks Greeks
}

// GreeksResponse is the result of a greeks lookup for one or more
// option contract symbols.
type GreeksResponse struct {
	Greeks []OptionGreeks
}
