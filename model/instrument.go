package model

// InstrumentType distinguishes the kind of tradeable the rest of the
// model refers to.
type InstrumentType string

const (
	InstrumentTypeEquity InstrumentType = "EQUITY"
	InstrumentTypeOption InstrumentType = "OPTION"
)

// Instrument identifies a tradeable by symbol, type, and currency. It
// is the subject of a price subscription and compares by value on all
// three fields, which is what the subscription registry relies on to
// key its subject index: two Instruments with the same Symbol and Type
// but different Currency values are separate subjects.
type Instrument struct {
	Symbol   string
	Type     InstrumentType
	Currency Currency
}

// Option describes the option-specific fields of an Instrument when
// Type is InstrumentTypeOption.
type Option struct {
	UnderlyingSymbol string
	ExpirationDate   string // YYYY-MM-DD
	StrikePrice      string // decimal string, e.g. "150.00"
	PutCall          string // "PUT" or "CALL"
}
