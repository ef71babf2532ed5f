package journal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/market"
)

const redisCandlePrefix = "tradedash:trade_candles:"

// RedisCandleCache mirrors cached candle windows in Redis in front of
// another Journal. Keys never expire. Redis failures are logged and the
// wrapped Journal answers instead.
type RedisCandleCache struct {
	Journal
	client *redis.Client
}

func NewRedisCandleCache(inner Journal, client *redis.Client) *RedisCandleCache {
	return &RedisCandleCache{Journal: inner, client: client}
}

func redisCandleKey(tradeID string, tf market.Timeframe) string {
	return redisCandlePrefix + CandleDocID(tradeID, tf.String())
}

func (r *RedisCandleCache) GetCachedCandles(ctx context.Context, tradeID string, tf market.Timeframe) ([]market.Candle, error) {
	key := redisCandleKey(tradeID, tf)
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var candles []market.Candle
		jerr := json.Unmarshal(data, &candles)
		if jerr == nil {
			return candles, nil
		}
		log.Warn().Err(jerr).Str("key", key).Msg("discarding unreadable redis candles")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("redis candle lookup failed")
	}

	candles, err := r.Journal.GetCachedCandles(ctx, tradeID, tf)
	if err != nil {
		return nil, err
	}
	r.mirror(ctx, key, candles)
	return candles, nil
}

func (r *RedisCandleCache) CacheCandles(ctx context.Context, tradeID string, tf market.Timeframe, candles []market.Candle) error {
	if err := r.Journal.CacheCandles(ctx, tradeID, tf, candles); err != nil {
		return err
	}
	r.mirror(ctx, redisCandleKey(tradeID, tf), candles)
	return nil
}

func (r *RedisCandleCache) InvalidateCandles(ctx context.Context, tradeID string, tf market.Timeframe) error {
	key := redisCandleKey(tradeID, tf)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis candle delete failed")
	}
	return r.Journal.InvalidateCandles(ctx, tradeID, tf)
}

func (r *RedisCandleCache) mirror(ctx context.Context, key string, candles []market.Candle) {
	data, err := json.Marshal(candles)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis candle write failed")
	}
}

func (r *RedisCandleCache) Close() error {
	err := r.client.Close()
	if ierr := r.Journal.Close(); ierr != nil {
		return ierr
	}
	return err
}
