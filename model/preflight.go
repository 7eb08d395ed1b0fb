package model

import "github.com/shopspring/decimal"

// PreflightRequest asks the broker to estimate the cost and commission
// of an order without placing it.
type PreflightRequest struct {
	Instrument Instrument
	Side       OrderSide
	Type       OrderType
	Expiration OrderExpiration
	Quantity   decimal.Decimal
	LimitPrice *decimal.Decimal
}

// PreflightResponse is the broker's cost estimate for a PreflightRequest.
type PreflightResponse struct {
	Instrument          Instrument
	OrderValue          decimal.Decimal
	EstimatedCommission decimal.Decimal
	EstimatedCost       decimal.Decimal
}

// MultilegPreflightRequest is PreflightRequest for a multi-leg options
// order.
type MultilegPreflightRequest struct {
	Legs       []Leg
	Type       OrderType
	Expiration OrderExpiration
	Quantity   decimal.Decimal
	LimitPrice *decimal.Decimal
}
