package journal

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/stats"
)

// DocJournal implements Journal over any Documents backend.
type DocJournal struct {
	docs Documents
	now  func() time.Time
}

var _ Journal = (*DocJournal)(nil)

// New wraps docs in the persistence facade.
func New(docs Documents) *DocJournal {
	return &DocJournal{docs: docs, now: time.Now}
}

func (j *DocJournal) stamp() string {
	return market.FormatISOTime(j.now().UTC())
}

func (j *DocJournal) put(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersistence, path, err)
	}
	if err := j.docs.Put(ctx, path, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, path, err)
	}
	return nil
}

// get decodes the document at path into v.
func (j *DocJournal) get(ctx context.Context, path string, v any) error {
	doc, err := j.docs.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(doc.Data), v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrPersistence, path, err)
	}
	return nil
}

func (j *DocJournal) exists(ctx context.Context, path string) (bool, error) {
	_, err := j.docs.Get(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (j *DocJournal) SaveAccountSnapshot(ctx context.Context, accountID, name string, summary stats.Summary, tradesBySymbol map[string][]stats.Trade, aux map[string]any) error {
	if name == "" {
		name = fmt.Sprintf("Account %s", accountID)
	}
	if tradesBySymbol == nil {
		tradesBySymbol = map[string][]stats.Trade{}
	}
	if aux == nil {
		aux = map[string]any{}
	}

	// Merge into whatever the account document already holds.
	account := map[string]any{}
	if err := j.get(ctx, accountPath(accountID), &account); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: read account %s: %v", ErrPersistence, accountID, err)
	}
	account["id"] = accountID
	account["name"] = name
	account["last_processed"] = summary.LastUpdated
	account["updated_at"] = j.stamp()

	writes := []struct {
		path string
		v    any
	}{
		{accountPath(accountID), account},
		{summaryPath(accountID), summary},
		{tradesPath(accountID), tradesBySymbol},
		{forexPath(accountID), aux},
	}
	for _, w := range writes {
		if err := j.put(ctx, w.path, w.v); err != nil {
			return err
		}
	}
	return nil
}

type candleDoc struct {
	TradeID   string          `json:"trade_id"`
	Timeframe string          `json:"timeframe"`
	Candles   []market.Candle `json:"candles"`
	UpdatedAt string          `json:"updated_at"`
}

func (j *DocJournal) GetCachedCandles(ctx context.Context, tradeID string, tf market.Timeframe) ([]market.Candle, error) {
	var doc candleDoc
	err := j.get(ctx, candlePath(tradeID, tf.String()), &doc)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	if len(doc.Candles) == 0 {
		return nil, ErrCacheMiss
	}
	return doc.Candles, nil
}

func (j *DocJournal) CacheCandles(ctx context.Context, tradeID string, tf market.Timeframe, candles []market.Candle) error {
	return j.put(ctx, candlePath(tradeID, tf.String()), candleDoc{
		TradeID:   tradeID,
		Timeframe: tf.String(),
		Candles:   candles,
		UpdatedAt: j.stamp(),
	})
}

func (j *DocJournal) InvalidateCandles(ctx context.Context, tradeID string, tf market.Timeframe) error {
	err := j.docs.Delete(ctx, candlePath(tradeID, tf.String()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: delete candles %s: %v", ErrPersistence, CandleDocID(tradeID, tf.String()), err)
	}
	return nil
}

// accountsWithSummary lists account documents that have a summary, in
// path order.
func (j *DocJournal) accountsWithSummary(ctx context.Context) ([]Document, error) {
	docs, err := j.docs.List(ctx, colAccounts)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %v", ErrPersistence, err)
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		ok, err := j.exists(ctx, summaryPath(d.ID()))
		if err != nil {
			return nil, fmt.Errorf("%w: read summary %s: %v", ErrPersistence, d.ID(), err)
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// tradesOf reads the trades/byPair document of an account. Entries that
// are not a list of trades are skipped. Pairs missing from a record are
// filled in from the symbol key.
func (j *DocJournal) tradesOf(ctx context.Context, accountID string) ([]stats.Trade, error) {
	raw := map[string]json.RawMessage{}
	err := j.get(ctx, tradesPath(accountID), &raw)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var trades []stats.Trade
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		var list []stats.Trade
		if err := json.Unmarshal(raw[key], &list); err != nil {
			log.Debug().Err(err).Str("account", accountID).Str("pair", key).Msg("skipping malformed trade list")
			continue
		}
		for _, t := range list {
			if t.Pair == "" {
				t.Pair = market.PairFromKey(key)
			}
			trades = append(trades, t)
		}
	}
	return trades, nil
}

func (j *DocJournal) FindTradeByID(ctx context.Context, tradeID string) (stats.Trade, error) {
	accounts, err := j.accountsWithSummary(ctx)
	if err != nil {
		return stats.Trade{}, err
	}
	for _, acc := range accounts {
		trades, err := j.tradesOf(ctx, acc.ID())
		if err != nil {
			return stats.Trade{}, err
		}
		for _, t := range trades {
			if strconv.FormatInt(t.TradeID, 10) == tradeID {
				return t, nil
			}
		}
	}
	return stats.Trade{}, fmt.Errorf("trade %s: %w", tradeID, ErrNotFound)
}

func (j *DocJournal) ListRecentTrades(ctx context.Context, limit int) ([]stats.Trade, error) {
	accounts, err := j.accountsWithSummary(ctx)
	if err != nil {
		return nil, err
	}

	all := []stats.Trade{}
	for _, acc := range accounts {
		trades, err := j.tradesOf(ctx, acc.ID())
		if err != nil {
			return nil, err
		}
		all = append(all, trades...)
	}

	slices.SortStableFunc(all, func(a, b stats.Trade) int {
		return cmp.Compare(b.EntryDateTime, a.EntryDateTime)
	})
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type tokenDoc struct {
	Token     string `json:"token"`
	UpdatedAt string `json:"updated_at"`
}

func (j *DocJournal) SaveDeviceToken(ctx context.Context, token string) error {
	return j.put(ctx, tokenPath(token), tokenDoc{Token: token, UpdatedAt: j.stamp()})
}

func (j *DocJournal) GetAccountData(ctx context.Context, accountID string) (AccountData, error) {
	data := AccountData{
		Account: AccountDoc{ID: accountID},
		Trades:  map[string][]stats.Trade{},
		Forex:   map[string]any{},
	}

	found := false
	reads := []struct {
		path string
		v    any
	}{
		{accountPath(accountID), &data.Account},
		{tradesPath(accountID), &data.Trades},
		{forexPath(accountID), &data.Forex},
	}
	for _, r := range reads {
		err := j.get(ctx, r.path, r.v)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return AccountData{}, err
		}
		found = true
	}

	var summary stats.Summary
	err := j.get(ctx, summaryPath(accountID), &summary)
	switch {
	case err == nil:
		data.Summary = &summary
		found = true
	case !errors.Is(err, ErrNotFound):
		return AccountData{}, err
	}

	if !found {
		return AccountData{}, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return data, nil
}

func (j *DocJournal) ListAccountsWithData(ctx context.Context) ([]AccountDoc, error) {
	docs, err := j.accountsWithSummary(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AccountDoc, 0, len(docs))
	for _, d := range docs {
		var acc AccountDoc
		if err := json.Unmarshal([]byte(d.Data), &acc); err != nil {
			return nil, fmt.Errorf("%w: decode account %s: %v", ErrPersistence, d.ID(), err)
		}
		acc.ID = d.ID()
		out = append(out, acc)
	}
	return out, nil
}

func (j *DocJournal) Close() error {
	return j.docs.Close()
}
