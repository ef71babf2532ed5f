package market

// TradeCandleIndex returns the index of the first candle flagged as the
// trade candle, or len(candles)/2 when none is flagged.
func TradeCandleIndex(candles []Candle) int {
	for i, c := range candles {
		if c.IsTradeCandle {
			return i
		}
	}
	return len(candles) / 2
}

// SliceAroundTrade returns the contiguous run of candles from before
// candles ahead of the trade candle to after candles past it, clamped to the
// slice bounds. Flags and positions are returned untouched.
func SliceAroundTrade(candles []Candle, before, after int) []Candle {
	if len(candles) == 0 {
		return []Candle{}
	}
	before, after = max(before, 0), max(after, 0)

	anchor := TradeCandleIndex(candles)
	start := max(0, anchor-before)
	end := min(len(candles), anchor+after+1)
	return candles[start:end]
}
