package market

import (
	"fmt"
	"time"
)

// TradeRef is the part of a trade needed to centre a candle window on it.
type TradeRef struct {
	EntryTime  time.Time
	EntryPrice float64
	Pair       string
}

// synthDecimals is the rounding applied to synthesized OHLC values.
const synthDecimals = 5

// SynthesizeCandles builds a placeholder OHLC series of before+1+after
// candles spaced tf apart and centred on the trade entry. The output is a
// pure function of its inputs.
func SynthesizeCandles(trade TradeRef, before, after int, tf Timeframe) ([]Candle, error) {
	if before < 0 || after < 0 {
		return nil, fmt.Errorf("synthesize candles: negative window %d/%d", before, after)
	}
	if trade.EntryTime.IsZero() {
		return nil, fmt.Errorf("synthesize candles: trade has no entry time")
	}

	volatility := 0.001
	if IsJPY(trade.Pair) {
		volatility = 0.1
	}
	minutes := tf.Minutes()

	candles := make([]Candle, 0, before+1+after)
	for i := -before; i <= after; i++ {
		ts := trade.EntryTime.Add(time.Duration(i*minutes) * time.Minute)

		drift := float64(i)*0.0001 + 0.0002*float64(floorMod(i, 3)-1)
		open := trade.EntryPrice + drift
		high := open + volatility*0.5
		low := open - volatility*0.5

		sign := -1.0
		if i%2 == 0 {
			sign = 1.0
		}
		close := open + volatility*0.2*sign

		high = max(high, open, close)
		low = min(low, open, close)

		candles = append(candles, Candle{
			Timestamp:          FormatISOTime(ts),
			Open:               Round(open, synthDecimals),
			High:               Round(high, synthDecimals),
			Low:                Round(low, synthDecimals),
			Close:              Round(close, synthDecimals),
			Volume:             1000 + i*50,
			IsTradeCandle:      i == 0,
			Position:           i,
			Timeframe:          tf,
			Symbol:             trade.Pair,
			TimeToTradeMinutes: i * minutes,
		})
	}
	return candles, nil
}

// floorMod is the modulo that stays non-negative for negative i.
func floorMod(i, n int) int {
	return ((i % n) + n) % n
}
