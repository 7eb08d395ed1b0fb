package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusWorking   OrderStatus = "WORKING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
)

// IsTerminal reports whether no further status transitions can occur.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// OrderSide is the buy/sell direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType selects the pricing behavior of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// TimeInForce controls how long an order remains eligible to fill.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceGTC TimeInForce = "GTC"
)

// Order is the latest state the core has seen for a placed order.
type Order struct {
	ID          string
	AccountID   string
	Instrument  Instrument
	Side        OrderSide
	Type        OrderType
	TimeInForce TimeInForce
	Status      OrderStatus

	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	LimitPrice     *decimal.Decimal
	AveragePrice   *decimal.Decimal

	RejectReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderKey identifies an order subscription's subject: the order
// belongs to exactly one account, and order ids are scoped to it.
type OrderKey struct {
	AccountID string
	OrderID   string
}

// Key returns the OrderKey this Order was observed for, satisfying
// subscription.Keyed[OrderKey] so the scheduler can match fetch results
// back to the subjects it asked for.
func (o Order) Key() OrderKey {
	return OrderKey{AccountID: o.AccountID, OrderID: o.ID}
}

// Equal reports whether two Order observations are indistinguishable
// for change-detection purposes: same status, and (for that status)
// the same filled quantity and average price.
func (o Order) Equal(other Order) bool {
	if o.Status != other.Status {
		return false
	}
	if !o.FilledQuantity.Equal(other.FilledQuantity) {
		return false
	}
	return decimalPtrEqual(o.AveragePrice, other.AveragePrice)
}

// OrderExpiration carries the time-in-force (and, for GTC, an optional
// expiration date) of an order request.
type OrderExpiration struct {
	TimeInForce TimeInForce
	GTCDate     *time.Time
}

// OrderRequest describes a single-leg equity or option order to place.
type OrderRequest struct {
	OrderID    string // client-generated idempotency key; caller-supplied or uuid.New() if empty
	Instrument Instrument
	Side       OrderSide
	Type       OrderType
	Expiration OrderExpiration
	Quantity   decimal.Decimal
	LimitPrice *decimal.Decimal
}

// Leg is one leg of a multi-leg options order.
type Leg struct {
	Instrument Instrument
	Side       OrderSide
	Ratio      int
}

// MultilegOrderRequest describes a multi-leg options order (e.g. a
// vertical spread) to place as a single atomic order.
type MultilegOrderRequest struct {
	OrderID    string
	Legs       []Leg
	Type       OrderType
	Expiration OrderExpiration
	Quantity   decimal.Decimal
	LimitPrice *decimal.Decimal
}
