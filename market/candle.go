package market

// Candle is one OHLC bar in a trade-centred window.
//
// Position is the signed offset from the trade candle in timeframe units and
// is zero for the candle that contains the trade entry.
type Candle struct {
	Timestamp          string    `json:"timestamp"`
	Open               float64   `json:"open"`
	High               float64   `json:"high"`
	Low                float64   `json:"low"`
	Close              float64   `json:"close"`
	Volume             int       `json:"volume"`
	IsTradeCandle      bool      `json:"is_trade_candle"`
	Position           int       `json:"position"`
	Timeframe          Timeframe `json:"timeframe"`
	Symbol             string    `json:"symbol"`
	TimeToTradeMinutes int       `json:"time_to_trade_minutes"`
}

// Valid reports whether the high/low bracket the open and close.
func (c Candle) Valid() bool {
	return c.High >= max(c.Open, c.Close) && c.Low <= min(c.Open, c.Close)
}
