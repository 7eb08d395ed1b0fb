package model

import "golang.org/x/text/currency"

// Currency is a validated ISO 4217 currency code. The zero value is
// invalid; use ParseCurrency to build one.
type Currency struct {
	unit currency.Unit
}

// ParseCurrency validates code (e.g. "USD") against ISO 4217, returning
// an error for anything that isn't a recognized currency.
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, err
	}
	return Currency{unit: unit}, nil
}

// USD is the default settlement currency for instruments that don't
// specify one.
var USD = Currency{unit: currency.USD}

// String returns the ISO 4217 code, e.g. "USD".
func (c Currency) String() string {
	if c.unit == (currency.Unit{}) {
		return ""
	}
	return c.unit.String()
}

// IsZero reports whether c was never assigned a valid currency.
func (c Currency) IsZero() bool {
	return c.unit == (currency.Unit{})
}
