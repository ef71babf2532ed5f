package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rustyeddy/tradedash/market"
)

const notAvailable = "N/A"

// OptionalPrice is a stop-loss or take-profit level that may be missing
// upstream. A missing level is encoded as the string "N/A".
type OptionalPrice struct {
	Value float64
	Valid bool
}

// Price wraps a known level.
func Price(v float64) OptionalPrice {
	return OptionalPrice{Value: v, Valid: true}
}

func (p OptionalPrice) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return json.Marshal(notAvailable)
	}
	return json.Marshal(p.Value)
}

func (p *OptionalPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = OptionalPrice{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" || s == notAvailable {
			*p = OptionalPrice{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("price level %q: %w", s, err)
		}
		*p = Price(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// Trade is one closed deal as the dashboard stores it.
type Trade struct {
	TradeID       int64         `json:"Trade ID"`
	Pair          string        `json:"pair"`
	EntryDateTime string        `json:"Entry DateTime"`
	Direction     string        `json:"Buy/Sell"`
	EntryPrice    float64       `json:"Entry Price"`
	SL            OptionalPrice `json:"SL"`
	TP            OptionalPrice `json:"TP"`
	ClosePrice    float64       `json:"Close Price"`
	Pips          float64       `json:"Pips"`
	Lots          float64       `json:"Lots"`
	PnL           float64       `json:"PnL"`
	Commission    float64       `json:"Commission"`
	Swap          float64       `json:"Swap"`
	Result        string        `json:"Win/Lose"`
}

// Won reports whether the deal closed with a positive PnL.
func (t Trade) Won() bool {
	return t.PnL > 0
}

// SymbolKey is the storage key of the trade's pair.
func (t Trade) SymbolKey() string {
	return market.SymbolKey(t.Pair)
}

// NormalizeTrade rounds every numeric field to the precision it is
// displayed with and derives Win/Lose from PnL.
func NormalizeTrade(t Trade) Trade {
	t.EntryPrice = market.RoundPrice(t.Pair, t.EntryPrice)
	t.ClosePrice = market.RoundPrice(t.Pair, t.ClosePrice)
	if t.SL.Valid {
		t.SL.Value = market.RoundPrice(t.Pair, t.SL.Value)
	}
	if t.TP.Valid {
		t.TP.Value = market.RoundPrice(t.Pair, t.TP.Value)
	}
	t.Pips = market.Round(t.Pips, 1)
	t.Lots = market.Round(t.Lots, 3)
	t.PnL = market.Round(t.PnL, 2)
	t.Commission = market.Round(t.Commission, 2)
	t.Swap = market.Round(t.Swap, 2)

	t.Result = "LOSE"
	if t.Won() {
		t.Result = "WIN"
	}
	return t
}
