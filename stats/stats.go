// Package stats turns a flat list of closed deals into the per-pair and
// account-wide figures shown on the dashboard.
package stats

import (
	"maps"
	"slices"
	"time"

	"github.com/rustyeddy/tradedash/market"
)

// PairSummary holds the figures for one symbol.
type PairSummary struct {
	TotalTrades       int     `json:"total_trades"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	TotalPnL          float64 `json:"total_pnl"`
	WinRate           float64 `json:"win_rate"`
	AvgPnL            float64 `json:"avg_pnl"`
	FibonacciAccuracy float64 `json:"fibonacci_accuracy"`
}

// Summary is the account-wide aggregate. It is rebuilt from scratch on
// every run.
type Summary struct {
	TotalPairs     int                    `json:"total_pairs"`
	TotalTrades    int                    `json:"total_trades"`
	TotalWins      int                    `json:"total_wins"`
	TotalLosses    int                    `json:"total_losses"`
	TotalPnL       float64                `json:"total_pnl"`
	PairsSummary   map[string]PairSummary `json:"pairs_summary"`
	OverallWinRate float64                `json:"overall_win_rate"`
	AvgPnL         float64                `json:"avg_pnl"`
	AccountInfo    map[string]any         `json:"account_info"`
	OpenPositions  []map[string]any       `json:"open_positions"`
	LastUpdated    string                 `json:"last_updated"`
}

// AccountName returns account_info.account_name when it is a non-empty
// string.
func (s Summary) AccountName() string {
	if name, ok := s.AccountInfo["account_name"].(string); ok {
		return name
	}
	return ""
}

// GroupBySymbol buckets deals by symbol key, keeping input order within
// each bucket.
func GroupBySymbol(deals []Trade) map[string][]Trade {
	groups := make(map[string][]Trade)
	for _, d := range deals {
		key := d.SymbolKey()
		groups[key] = append(groups[key], d)
	}
	return groups
}

// Aggregate computes the summary for deals. The result depends only on
// its arguments.
func Aggregate(deals []Trade, accountInfo map[string]any, openPositions []map[string]any, now time.Time) Summary {
	if accountInfo == nil {
		accountInfo = map[string]any{}
	}
	if openPositions == nil {
		openPositions = []map[string]any{}
	}

	s := Summary{
		TotalTrades:   len(deals),
		PairsSummary:  make(map[string]PairSummary),
		AccountInfo:   accountInfo,
		OpenPositions: openPositions,
		LastUpdated:   market.FormatISOTime(now),
	}

	groups := GroupBySymbol(deals)
	// Sorted keys keep the floating-point sum stable across runs.
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		ps := summarize(groups[key])
		s.PairsSummary[key] = ps
		s.TotalWins += ps.Wins
		s.TotalLosses += ps.Losses
		s.TotalPnL += ps.TotalPnL
	}
	s.TotalPairs = len(s.PairsSummary)

	if s.TotalTrades > 0 {
		s.OverallWinRate = float64(s.TotalWins) / float64(s.TotalTrades) * 100
		s.AvgPnL = s.TotalPnL / float64(s.TotalTrades)
	}
	return s
}

func summarize(trades []Trade) PairSummary {
	ps := PairSummary{TotalTrades: len(trades)}
	for _, t := range trades {
		if t.Won() {
			ps.Wins++
		}
		ps.TotalPnL += t.PnL
	}
	ps.Losses = ps.TotalTrades - ps.Wins
	if ps.TotalTrades > 0 {
		ps.WinRate = float64(ps.Wins) / float64(ps.TotalTrades) * 100
		ps.AvgPnL = ps.TotalPnL / float64(ps.TotalTrades)
	}
	return ps
}
