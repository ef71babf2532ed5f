package processor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradedash/accounts"
	"github.com/rustyeddy/tradedash/journal"
	"github.com/rustyeddy/tradedash/remote"
	"github.com/rustyeddy/tradedash/stats"
)

type fakeFetcher struct {
	snaps map[string]remote.Snapshot
	calls []string
}

func (f *fakeFetcher) FetchAccountSnapshot(ctx context.Context, accountID string) (remote.Snapshot, error) {
	f.calls = append(f.calls, accountID)
	snap, ok := f.snaps[accountID]
	if !ok {
		return remote.Snapshot{}, remote.ErrFetchFailed
	}
	return snap, nil
}

type failingStore struct{}

func (failingStore) SaveAccountSnapshot(context.Context, string, string, stats.Summary, map[string][]stats.Trade, map[string]any) error {
	return journal.ErrPersistence
}

func snapshot(name string, pnls ...float64) remote.Snapshot {
	snap := remote.Snapshot{AccountInfo: map[string]any{}, OpenPositions: []map[string]any{}}
	if name != "" {
		snap.AccountInfo["account_name"] = name
	}
	for i, pnl := range pnls {
		snap.ClosedDeals = append(snap.ClosedDeals, stats.NormalizeTrade(stats.Trade{
			TradeID:       int64(i + 1),
			Pair:          "EUR/USD",
			EntryDateTime: "2025-08-01T10:00:00",
			PnL:           pnl,
		}))
	}
	return snap
}

func newAccounts(t *testing.T, ids ...string) *accounts.Store {
	t.Helper()
	s, err := accounts.NewStore(filepath.Join(t.TempDir(), "accounts_config.json"), "")
	require.NoError(t, err)
	for _, id := range ids {
		_, err := s.Add(id, "Config "+id)
		require.NoError(t, err)
	}
	return s
}

func TestRun_ProcessesEnabledAccounts(t *testing.T) {
	ctx := context.Background()
	src := newAccounts(t, "1", "2", "3")
	off := false
	_, err := src.Update("3", accounts.AccountUpdate{Enabled: &off})
	require.NoError(t, err)

	fetcher := &fakeFetcher{snaps: map[string]remote.Snapshot{
		"1": snapshot("Broker One", 10, -5),
		// "2" fails upstream
	}}
	j := journal.New(journal.NewMemoryStore())
	dataDir := t.TempDir()

	p := New(src, fetcher, j, Options{DataDir: dataDir})
	sum, err := p.Run(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, fetcher.calls)
	assert.Equal(t, 2, sum.TotalAccounts)
	assert.Equal(t, 1, sum.SuccessfulAccounts)
	assert.Equal(t, 1, sum.FailedAccounts)
	assert.True(t, sum.Accounts[0].Success)
	assert.NotNil(t, sum.Accounts[0].LastProcessed)
	assert.Equal(t, 2, sum.Accounts[0].Trades)
	assert.False(t, sum.Accounts[1].Success)
	assert.Nil(t, sum.Accounts[1].LastProcessed)
	assert.Contains(t, sum.Accounts[1].Error, "fetch failed")

	_, err = ulid.ParseStrict(sum.RunID)
	assert.NoError(t, err)

	data, err := j.GetAccountData(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Broker One", data.Account.Name)
	assert.Equal(t, 2, data.Summary.TotalTrades)

	_, err = j.GetAccountData(ctx, "2")
	assert.ErrorIs(t, err, journal.ErrNotFound, "failed fetch saves nothing")

	raw, err := os.ReadFile(filepath.Join(dataDir, MetaFile))
	require.NoError(t, err)
	var meta RunSummary
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, sum.RunID, meta.RunID)
	assert.Equal(t, 1, meta.FailedAccounts)
}

func TestRun_NameFallsBackToConfig(t *testing.T) {
	ctx := context.Background()
	src := newAccounts(t, "5")
	fetcher := &fakeFetcher{snaps: map[string]remote.Snapshot{"5": snapshot("", 1)}}
	j := journal.New(journal.NewMemoryStore())

	_, err := New(src, fetcher, j, Options{}).Run(ctx, "")
	require.NoError(t, err)

	data, err := j.GetAccountData(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Config 5", data.Account.Name)
}

func TestRun_SingleAccount(t *testing.T) {
	src := newAccounts(t, "1", "2")
	fetcher := &fakeFetcher{snaps: map[string]remote.Snapshot{"99": snapshot("", 1)}}
	j := journal.New(journal.NewMemoryStore())

	sum, err := New(src, fetcher, j, Options{}).Run(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, []string{"99"}, fetcher.calls)
	assert.Equal(t, 1, sum.SuccessfulAccounts)

	data, err := j.GetAccountData(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, "Account 99", data.Account.Name)
}

func TestRun_FallbackID(t *testing.T) {
	src := newAccounts(t)
	fetcher := &fakeFetcher{snaps: map[string]remote.Snapshot{"777": snapshot("", 1)}}
	j := journal.New(journal.NewMemoryStore())

	sum, err := New(src, fetcher, j, Options{FallbackID: "777"}).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"777"}, fetcher.calls)
	assert.Equal(t, 1, sum.TotalAccounts)
}

func TestRun_NoAccounts(t *testing.T) {
	src := newAccounts(t)
	_, err := New(src, &fakeFetcher{}, journal.New(journal.NewMemoryStore()), Options{}).Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoAccounts)
}

func TestRun_SaveFailureRecorded(t *testing.T) {
	src := newAccounts(t, "1")
	fetcher := &fakeFetcher{snaps: map[string]remote.Snapshot{"1": snapshot("", 1)}}

	sum, err := New(src, fetcher, failingStore{}, Options{}).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FailedAccounts)
	assert.Contains(t, sum.Accounts[0].Error, "persistence failure")
}

func TestRun_CancelledContext(t *testing.T) {
	src := newAccounts(t, "1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, &fakeFetcher{}, journal.New(journal.NewMemoryStore()), Options{}).Run(ctx, "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTriggerCommand(t *testing.T) {
	cmd, err := Trigger{Binary: "/usr/local/bin/tradedash", ConfigPath: "cfg.yaml"}.command("42")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/local/bin/tradedash", "process", "--account-id", "42", "--config", "cfg.yaml"}, cmd.Args)

	cmd, err = Trigger{Binary: "/usr/local/bin/tradedash"}.command("")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/local/bin/tradedash", "process"}, cmd.Args)
}

func TestTriggerStart(t *testing.T) {
	assert.False(t, Trigger{Binary: filepath.Join(t.TempDir(), "missing")}.Start(""))

	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	assert.True(t, Trigger{Binary: bin}.Start("1"))
	time.Sleep(10 * time.Millisecond)
}
