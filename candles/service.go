// Package candles serves candlestick windows centred on a recorded trade,
// from the cache when possible and synthesized otherwise.
package candles

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/journal"
	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/metrics"
	"github.com/rustyeddy/tradedash/stats"
)

const (
	MinWindow = 1
	MaxWindow = 50

	// AvailableTradesLimit caps ListAvailableTrades.
	AvailableTradesLimit = 50

	SourceCache     = "cache"
	SourceGenerated = "generated"
)

var (
	ErrValidation    = errors.New("invalid candle request")
	ErrTradeNotFound = errors.New("trade not found")
	ErrGenerate      = errors.New("failed to generate candlestick data")
)

// ValidationError carries the message returned to API clients. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Store is the slice of the journal the service needs.
type Store interface {
	GetCachedCandles(ctx context.Context, tradeID string, tf market.Timeframe) ([]market.Candle, error)
	CacheCandles(ctx context.Context, tradeID string, tf market.Timeframe, candles []market.Candle) error
	InvalidateCandles(ctx context.Context, tradeID string, tf market.Timeframe) error
	FindTradeByID(ctx context.Context, tradeID string) (stats.Trade, error)
	ListRecentTrades(ctx context.Context, limit int) ([]stats.Trade, error)
}

// Result is a served candle window.
type Result struct {
	TradeID       string          `json:"trade_id"`
	Timeframe     string          `json:"timeframe"`
	CandlesBefore int             `json:"candles_before"`
	CandlesAfter  int             `json:"candles_after"`
	TotalCandles  int             `json:"total_candles"`
	Data          []market.Candle `json:"data"`
	Source        string          `json:"source"`
}

// TradeSummary is the projection of a trade listed by ListAvailableTrades.
type TradeSummary struct {
	TradeID    int64   `json:"trade_id"`
	Pair       string  `json:"pair"`
	EntryTime  string  `json:"entry_time"`
	Direction  string  `json:"direction"`
	EntryPrice float64 `json:"entry_price"`
	PnL        float64 `json:"pnl"`
	Pips       float64 `json:"pips"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Validate checks window sizes and the timeframe.
func Validate(before, after int, timeframe string) (market.Timeframe, error) {
	if before < MinWindow || before > MaxWindow {
		return "", &ValidationError{Message: fmt.Sprintf("candles_before must be between %d and %d", MinWindow, MaxWindow)}
	}
	if after < MinWindow || after > MaxWindow {
		return "", &ValidationError{Message: fmt.Sprintf("candles_after must be between %d and %d", MinWindow, MaxWindow)}
	}
	tf, err := market.ParseTimeframe(timeframe)
	if err != nil {
		return "", &ValidationError{Message: market.ErrInvalidTimeframe.Error()}
	}
	return tf, nil
}

// GetTradeCandles returns before candles ahead of the trade, the trade
// candle and after candles past it. A cached window is sliced down to the
// request; otherwise a window is synthesized and cached.
func (s *Service) GetTradeCandles(ctx context.Context, tradeID string, before, after int, timeframe string) (Result, error) {
	tf, err := Validate(before, after, timeframe)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		TradeID:       tradeID,
		Timeframe:     tf.String(),
		CandlesBefore: before,
		CandlesAfter:  after,
	}

	cached, err := s.store.GetCachedCandles(ctx, tradeID, tf)
	switch {
	case err == nil:
		res.Data = market.SliceAroundTrade(cached, before, after)
		res.TotalCandles = len(res.Data)
		res.Source = SourceCache
		metrics.RecordCandleRequest(SourceCache)
		return res, nil
	case !errors.Is(err, journal.ErrCacheMiss):
		log.Warn().Err(err).Str("trade", tradeID).Msg("candle cache read failed, regenerating")
	}

	trade, err := s.store.FindTradeByID(ctx, tradeID)
	if errors.Is(err, journal.ErrNotFound) {
		return Result{}, fmt.Errorf("trade %s: %w", tradeID, ErrTradeNotFound)
	}
	if err != nil {
		return Result{}, fmt.Errorf("find trade %s: %w", tradeID, err)
	}

	candles, err := synthesize(trade, before, after, tf)
	if err != nil {
		log.Error().Err(err).Str("trade", tradeID).Msg("candle synthesis failed")
		return Result{}, ErrGenerate
	}

	if err := s.store.CacheCandles(ctx, tradeID, tf, candles); err != nil {
		log.Warn().Err(err).Str("trade", tradeID).Msg("caching candles failed")
	}

	res.Data = candles
	res.TotalCandles = len(candles)
	res.Source = SourceGenerated
	metrics.RecordCandleRequest(SourceGenerated)
	return res, nil
}

func synthesize(trade stats.Trade, before, after int, tf market.Timeframe) ([]market.Candle, error) {
	entry, err := market.ParseISOTime(trade.EntryDateTime)
	if err != nil {
		return nil, err
	}
	candles, err := market.SynthesizeCandles(market.TradeRef{
		EntryTime:  entry,
		EntryPrice: trade.EntryPrice,
		Pair:       trade.Pair,
	}, before, after, tf)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, errors.New("no candles produced")
	}
	return candles, nil
}

// Invalidate drops the cached window of a trade for one timeframe, or for
// every timeframe when timeframe is empty. The next request regenerates it.
func (s *Service) Invalidate(ctx context.Context, tradeID, timeframe string) ([]market.Timeframe, error) {
	tfs := market.Timeframes
	if timeframe != "" {
		tf, err := market.ParseTimeframe(timeframe)
		if err != nil {
			return nil, &ValidationError{Message: market.ErrInvalidTimeframe.Error()}
		}
		tfs = []market.Timeframe{tf}
	}

	for _, tf := range tfs {
		if err := s.store.InvalidateCandles(ctx, tradeID, tf); err != nil {
			return nil, fmt.Errorf("invalidate %s: %w", journal.CandleDocID(tradeID, tf.String()), err)
		}
	}
	log.Info().Str("trade", tradeID).Int("timeframes", len(tfs)).Msg("candle cache invalidated")
	return tfs, nil
}

// ListAvailableTrades returns the most recent trades for the picker.
func (s *Service) ListAvailableTrades(ctx context.Context) ([]TradeSummary, error) {
	trades, err := s.store.ListRecentTrades(ctx, AvailableTradesLimit)
	if err != nil {
		return nil, err
	}
	out := make([]TradeSummary, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeSummary{
			TradeID:    t.TradeID,
			Pair:       t.Pair,
			EntryTime:  t.EntryDateTime,
			Direction:  t.Direction,
			EntryPrice: t.EntryPrice,
			PnL:        t.PnL,
			Pips:       t.Pips,
		})
	}
	return out, nil
}

// DefaultWindow is used when before or after is not given.
const DefaultWindow = 10

// ParseWindow reads the named before/after query value.
func ParseWindow(name, raw string) (int, error) {
	if raw == "" {
		return DefaultWindow, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Message: fmt.Sprintf("%s must be an integer", name)}
	}
	return n, nil
}
