// Package remote talks to the account-data service that exposes broker
// history over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/stats"
)

const (
	// DefaultBaseURL is used when ACCOUNT_DATA_API_URL is unset.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single account-data request.
	DefaultTimeout = 30 * time.Second
)

var (
	ErrFetchFailed = errors.New("account data fetch failed")
	ErrNoData      = errors.New("no data received from account API")
)

// Snapshot is one account's state as reported by the account-data
// service, flattened for aggregation.
type Snapshot struct {
	AccountInfo   map[string]any
	OpenPositions []map[string]any
	ClosedDeals   []stats.Trade
}

type accountPayload struct {
	SummaryStats *struct {
		AccountInfo   map[string]any   `json:"account_info"`
		OpenPositions []map[string]any `json:"open_positions"`
	} `json:"summary_stats"`
	TradesBySymbol map[string][]stats.Trade `json:"trades_by_symbol"`
}

// Client fetches account snapshots.
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a client for the service at baseURL. Options can
// adjust the underlying resty client, mostly for tests.
func NewClient(baseURL string, timeout time.Duration, opts ...func(*resty.Client)) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	for _, opt := range opts {
		opt(client)
	}

	return &Client{client: client, baseURL: baseURL}, nil
}

// FetchAccountSnapshot performs one GET {base}/account-data?account_id=id.
// There is no retry.
func (c *Client) FetchAccountSnapshot(ctx context.Context, accountID string) (Snapshot, error) {
	url := c.baseURL + "/account-data"
	log.Debug().Str("url", url).Str("account", accountID).Msg("fetching account data")

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("account_id", accountID).
		Get(url)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return Snapshot{}, fmt.Errorf("%w: account-data responded with status %d", ErrFetchFailed, resp.StatusCode())
	}

	var payload accountPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode response: %v", ErrFetchFailed, err)
	}
	if payload.SummaryStats == nil && payload.TradesBySymbol == nil {
		return Snapshot{}, ErrNoData
	}

	snap := Snapshot{
		AccountInfo:   map[string]any{},
		OpenPositions: []map[string]any{},
		ClosedDeals:   flatten(payload.TradesBySymbol),
	}
	if ss := payload.SummaryStats; ss != nil {
		if ss.AccountInfo != nil {
			snap.AccountInfo = ss.AccountInfo
		}
		if ss.OpenPositions != nil {
			snap.OpenPositions = ss.OpenPositions
		}
	}

	log.Debug().
		Str("account", accountID).
		Int("deals", len(snap.ClosedDeals)).
		Int("open_positions", len(snap.OpenPositions)).
		Msg("account data received")
	return snap, nil
}

// flatten concatenates every symbol's deals in sorted symbol order.
func flatten(bySymbol map[string][]stats.Trade) []stats.Trade {
	deals := []stats.Trade{}
	for _, symbol := range slices.Sorted(maps.Keys(bySymbol)) {
		for _, t := range bySymbol[symbol] {
			if t.Pair == "" {
				t.Pair = market.PairFromKey(symbol)
			}
			deals = append(deals, stats.NormalizeTrade(t))
		}
	}
	return deals
}
