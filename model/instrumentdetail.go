package model

// Trading describes what actions are permitted on an instrument.
type Trading string

const (
	TradingBuyAndSell Trading = "BUY_AND_SELL"
	TradingBuyOnly    Trading = "BUY_ONLY"
	TradingDisabled   Trading = "DISABLED"
)

// InstrumentDetail is the tradability metadata the instruments endpoint
// returns for a single Instrument.
type InstrumentDetail struct {
	Instrument          Instrument
	Trading             Trading
	FractionalTrading   Trading
	OptionTrading       Trading
	OptionSpreadTrading Trading
}

// InstrumentsRequest filters a catalog listing query. A nil
// TradingFilter requests every instrument regardless of tradability.
type InstrumentsRequest struct {
	TradingFilter []Trading
}

// InstrumentsResponse lists the instruments matching an
// InstrumentsRequest.
type InstrumentsResponse struct {
	Instruments []InstrumentDetail
}
