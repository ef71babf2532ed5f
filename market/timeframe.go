package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeframe is returned for timeframe strings outside the
// supported set.
var ErrInvalidTimeframe = errors.New("timeframe must be one of: M15, M30, H1, H4, D1")

// Timeframe is the candle period used for trade windows.
type Timeframe string

const (
	M15 Timeframe = "M15" // 15 minutes
	M30 Timeframe = "M30" // 30 minutes
	H1  Timeframe = "H1"  // 1 hour
	H4  Timeframe = "H4"  // 4 hours
	D1  Timeframe = "D1"  // 1 day
)

// Timeframes lists the supported timeframes in ascending order.
var Timeframes = []Timeframe{M15, M30, H1, H4, D1}

// ParseTimeframe validates s against the supported set.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case M15, M30, H1, H4, D1:
		return tf, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidTimeframe, s)
	}
}

// Minutes returns the candle length in minutes. Unknown values fall back to
// M15 so a stale cache entry never produces a zero-width window.
func (tf Timeframe) Minutes() int {
	switch tf {
	case M30:
		return 30
	case H1:
		return 60
	case H4:
		return 240
	case D1:
		return 1440
	default:
		return 15
	}
}

// Duration returns the candle length.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Minutes()) * time.Minute
}

func (tf Timeframe) String() string {
	return string(tf)
}
