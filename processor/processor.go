// Package processor runs the fetch, aggregate and save pipeline over the
// configured accounts.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/accounts"
	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/metrics"
	"github.com/rustyeddy/tradedash/pkg/id"
	"github.com/rustyeddy/tradedash/remote"
	"github.com/rustyeddy/tradedash/stats"
)

// MetaFile is written to the data directory after every run.
const MetaFile = "accounts_meta.json"

var ErrNoAccounts = errors.New("no accounts configured and CTRADER_ACCOUNT_ID not set")

// AccountSource lists the accounts to process.
type AccountSource interface {
	EnabledIDs() ([]string, error)
	Get(id string) (accounts.Account, error)
}

// Fetcher retrieves one account's snapshot.
type Fetcher interface {
	FetchAccountSnapshot(ctx context.Context, accountID string) (remote.Snapshot, error)
}

// Store persists a processed account.
type Store interface {
	SaveAccountSnapshot(ctx context.Context, accountID, name string, summary stats.Summary, tradesBySymbol map[string][]stats.Trade, aux map[string]any) error
}

// AccountResult is the outcome for one account in a run.
type AccountResult struct {
	AccountID     string  `json:"account_id"`
	Success       bool    `json:"success"`
	Error         string  `json:"error,omitempty"`
	LastProcessed *string `json:"last_processed"`
	Trades        int     `json:"trades"`
}

// RunSummary describes a whole run. It is what accounts_meta.json holds.
type RunSummary struct {
	RunID              string          `json:"run_id"`
	Accounts           []AccountResult `json:"accounts"`
	TotalAccounts      int             `json:"total_accounts"`
	SuccessfulAccounts int             `json:"successful_accounts"`
	FailedAccounts     int             `json:"failed_accounts"`
	LastUpdated        string          `json:"last_updated"`
}

type Processor struct {
	accounts   AccountSource
	fetcher    Fetcher
	store      Store
	dataDir    string
	fallbackID string
	now        func() time.Time
}

// Options configures a Processor.
type Options struct {
	DataDir    string
	FallbackID string
}

func New(src AccountSource, fetcher Fetcher, store Store, opts Options) *Processor {
	return &Processor{
		accounts:   src,
		fetcher:    fetcher,
		store:      store,
		dataDir:    opts.DataDir,
		fallbackID: opts.FallbackID,
		now:        time.Now,
	}
}

func (p *Processor) targets(only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	ids, err := p.accounts.EnabledIDs()
	if err != nil {
		return nil, fmt.Errorf("list enabled accounts: %w", err)
	}
	if len(ids) > 0 {
		return ids, nil
	}
	if p.fallbackID != "" {
		log.Warn().Str("account", p.fallbackID).Msg("no enabled accounts, using fallback account id")
		return []string{p.fallbackID}, nil
	}
	return nil, ErrNoAccounts
}

// Run processes onlyAccountID, or every enabled account when it is empty.
// A failing account is recorded and the run moves on. The returned error
// covers only problems that stop the run as a whole.
func (p *Processor) Run(ctx context.Context, onlyAccountID string) (RunSummary, error) {
	ids, err := p.targets(onlyAccountID)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{RunID: id.New(), Accounts: make([]AccountResult, 0, len(ids))}
	log.Info().Str("run", summary.RunID).Int("accounts", len(ids)).Msg("processing accounts")

	for i, accountID := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		started := p.now()
		trades, err := p.processAccount(ctx, accountID)
		metrics.RecordAccountFetch(started, trades, err)

		res := AccountResult{AccountID: accountID, Success: err == nil, Trades: trades}
		if err != nil {
			res.Error = err.Error()
			summary.FailedAccounts++
			log.Error().Err(err).Str("account", accountID).Msgf("account %d/%d failed", i+1, len(ids))
		} else {
			ts := market.FormatISOTime(p.now().UTC())
			res.LastProcessed = &ts
			summary.SuccessfulAccounts++
			log.Info().Str("account", accountID).Int("trades", trades).Msgf("account %d/%d processed", i+1, len(ids))
		}
		summary.Accounts = append(summary.Accounts, res)
	}

	summary.TotalAccounts = len(summary.Accounts)
	summary.LastUpdated = market.FormatISOTime(p.now().UTC())
	metrics.RecordFetchRun(summary.FailedAccounts)

	if err := p.writeMeta(summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (p *Processor) processAccount(ctx context.Context, accountID string) (int, error) {
	snap, err := p.fetcher.FetchAccountSnapshot(ctx, accountID)
	if err != nil {
		return 0, err
	}

	summary := stats.Aggregate(snap.ClosedDeals, snap.AccountInfo, snap.OpenPositions, p.now().UTC())
	bySymbol := stats.GroupBySymbol(snap.ClosedDeals)

	if err := p.store.SaveAccountSnapshot(ctx, accountID, p.accountName(accountID, summary), summary, bySymbol, map[string]any{}); err != nil {
		return 0, fmt.Errorf("save account %s: %w", accountID, err)
	}
	metrics.SetAccountWinRate(accountID, summary.OverallWinRate)
	return summary.TotalTrades, nil
}

// accountName prefers the broker's name, then the configured one.
func (p *Processor) accountName(accountID string, summary stats.Summary) string {
	if name := summary.AccountName(); name != "" {
		return name
	}
	if acc, err := p.accounts.Get(accountID); err == nil && acc.Name != "" {
		return acc.Name
	}
	return accounts.DefaultName(accountID)
}

func (p *Processor) writeMeta(summary RunSummary) error {
	if p.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	path := filepath.Join(p.dataDir, MetaFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("run summary written")
	return nil
}
