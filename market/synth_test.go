package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gbpTrade(t *testing.T) TradeRef {
	t.Helper()
	entry, err := ParseISOTime("2025-08-27T08:15:53.416000")
	require.NoError(t, err)
	return TradeRef{EntryTime: entry, EntryPrice: 1.34596, Pair: "GBP/USD"}
}

func TestSynthesizeCandles_Window(t *testing.T) {
	candles, err := SynthesizeCandles(gbpTrade(t), 2, 2, M15)
	require.NoError(t, err)
	require.Len(t, candles, 5)

	positions := make([]int, 0, len(candles))
	for _, c := range candles {
		positions = append(positions, c.Position)
		assert.True(t, c.Valid(), "candle %d breaks the OHLC bracket", c.Position)
		assert.Equal(t, M15, c.Timeframe)
		assert.Equal(t, "GBP/USD", c.Symbol)
		assert.Equal(t, c.Position*15, c.TimeToTradeMinutes)
		assert.Equal(t, 1000+c.Position*50, c.Volume)
	}
	assert.Equal(t, []int{-2, -1, 0, 1, 2}, positions)

	trade := candles[2]
	assert.True(t, trade.IsTradeCandle)
	assert.Equal(t, 1.34576, trade.Open)
	assert.Equal(t, 1.34626, trade.High)
	assert.Equal(t, 1.34526, trade.Low)
	assert.Equal(t, 1.34596, trade.Close)
	assert.Equal(t, "2025-08-27T08:15:53.416000", trade.Timestamp)

	for i, c := range candles {
		if i != 2 {
			assert.False(t, c.IsTradeCandle)
		}
	}
}

func TestSynthesizeCandles_NegativeOffsetsUseFlooredModulo(t *testing.T) {
	candles, err := SynthesizeCandles(gbpTrade(t), 1, 0, M15)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	// i = -1: drift = -0.0001 + 0.0002*(2-1) = +0.0001, odd so close drops.
	first := candles[0]
	assert.Equal(t, 1.34606, first.Open)
	assert.Equal(t, 1.34586, first.Close)
	assert.Equal(t, 1.34656, first.High)
	assert.Equal(t, 1.34556, first.Low)
}

func TestSynthesizeCandles_AscendingTimestamps(t *testing.T) {
	for _, tf := range Timeframes {
		t.Run(string(tf), func(t *testing.T) {
			candles, err := SynthesizeCandles(gbpTrade(t), 10, 10, tf)
			require.NoError(t, err)
			require.Len(t, candles, 21)

			prev, err := ParseISOTime(candles[0].Timestamp)
			require.NoError(t, err)
			for _, c := range candles[1:] {
				ts, err := ParseISOTime(c.Timestamp)
				require.NoError(t, err)
				assert.Equal(t, tf.Duration(), ts.Sub(prev))
				prev = ts
			}
		})
	}
}

func TestSynthesizeCandles_JPYVolatility(t *testing.T) {
	trade := TradeRef{
		EntryTime:  time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		EntryPrice: 157.250,
		Pair:       "USD/JPY",
	}

	candles, err := SynthesizeCandles(trade, 0, 0, H1)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, "2025-07-01T12:00:00", c.Timestamp)
	assert.InDelta(t, 0.1, c.High-c.Low, 1e-9)
	assert.InDelta(t, 0.02, c.Close-c.Open, 1e-9)
}

func TestSynthesizeCandles_Pure(t *testing.T) {
	a, err := SynthesizeCandles(gbpTrade(t), 10, 10, H4)
	require.NoError(t, err)
	b, err := SynthesizeCandles(gbpTrade(t), 10, 10, H4)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSynthesizeCandles_Errors(t *testing.T) {
	_, err := SynthesizeCandles(gbpTrade(t), -1, 2, M15)
	assert.Error(t, err)

	_, err = SynthesizeCandles(TradeRef{EntryPrice: 1.1, Pair: "EUR/USD"}, 1, 1, M15)
	assert.Error(t, err)
}
