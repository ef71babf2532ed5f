package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store types accepted by Open.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
)

// Options configures Open.
type Options struct {
	Type      string
	DSN       string
	LogLevel  string
	RedisAddr string
}

// Open builds the Journal for the configured backend, fronted by Redis
// when a Redis address is given.
func Open(ctx context.Context, opts Options) (Journal, error) {
	var docs Documents

	switch strings.ToLower(opts.Type) {
	case StoreMemory:
		docs = NewMemoryStore()
	case StoreSQLite, StorePostgres, "postgresql", StoreMySQL:
		store, err := NewGormStore(DBConfig{
			Type:     strings.ToLower(opts.Type),
			DSN:      opts.DSN,
			LogLevel: opts.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		docs = store
	default:
		return nil, fmt.Errorf("unsupported store type: %s", opts.Type)
	}

	var j Journal = New(docs)
	if opts.RedisAddr == "" {
		return j, nil
	}

	client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.RedisAddr).Msg("redis unavailable, candle cache falls back to the document store")
	}
	return NewRedisCandleCache(j, client), nil
}
