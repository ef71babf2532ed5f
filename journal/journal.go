// Package journal persists processed account data, cached candle windows
// and device tokens as JSON documents addressed by slash-separated paths.
package journal

import (
	"context"
	"errors"

	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/stats"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrCacheMiss   = errors.New("candle cache miss")
	ErrPersistence = errors.New("persistence failure")
)

// AccountDoc is the top-level accounts/{id} document.
type AccountDoc struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LastProcessed string `json:"last_processed,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// AccountData bundles every document stored for one account. Missing
// sub-documents are left empty.
type AccountData struct {
	Account AccountDoc               `json:"account"`
	Summary *stats.Summary           `json:"summary"`
	Trades  map[string][]stats.Trade `json:"trades"`
	Forex   map[string]any           `json:"forex"`
}

// Journal is the persistence facade used by the processor, the candle
// service and the HTTP API.
type Journal interface {
	// SaveAccountSnapshot merges the account document and overwrites its
	// summary, trades and forex sub-documents. Writes are not atomic
	// across documents; the first failure aborts the rest.
	SaveAccountSnapshot(ctx context.Context, accountID, name string, summary stats.Summary, tradesBySymbol map[string][]stats.Trade, aux map[string]any) error

	GetCachedCandles(ctx context.Context, tradeID string, tf market.Timeframe) ([]market.Candle, error)
	CacheCandles(ctx context.Context, tradeID string, tf market.Timeframe, candles []market.Candle) error
	InvalidateCandles(ctx context.Context, tradeID string, tf market.Timeframe) error

	FindTradeByID(ctx context.Context, tradeID string) (stats.Trade, error)
	ListRecentTrades(ctx context.Context, limit int) ([]stats.Trade, error)

	SaveDeviceToken(ctx context.Context, token string) error

	GetAccountData(ctx context.Context, accountID string) (AccountData, error)
	ListAccountsWithData(ctx context.Context) ([]AccountDoc, error)

	Close() error
}
