package journal

import (
	"context"
	"strings"
	"time"
)

// Document paths.
const (
	colAccounts     = "accounts"
	colTradeCandles = "trade_candles"
	colDeviceTokens = "device_tokens"
)

func accountPath(id string) string  { return colAccounts + "/" + id }
func summaryPath(id string) string  { return accountPath(id) + "/summary/latest" }
func tradesPath(id string) string   { return accountPath(id) + "/trades/byPair" }
func forexPath(id string) string    { return accountPath(id) + "/forex/byPair" }
func tokenPath(token string) string { return colDeviceTokens + "/" + token }

// CandleDocID is the id of a cached candle window.
func CandleDocID(tradeID, tf string) string {
	return tradeID + "_" + tf
}

func candlePath(tradeID, tf string) string {
	return colTradeCandles + "/" + CandleDocID(tradeID, tf)
}

// collectionOf drops the document ids from a path:
// "accounts/7/summary/latest" belongs to "accounts/summary".
func collectionOf(path string) string {
	parts := strings.Split(path, "/")
	var col []string
	for i := 0; i < len(parts); i += 2 {
		col = append(col, parts[i])
	}
	return strings.Join(col, "/")
}

// Document is one stored JSON document.
type Document struct {
	Path       string    `gorm:"primaryKey;size:512"`
	Collection string    `gorm:"index;size:255;not null"`
	Data       string    `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Document) TableName() string {
	return "documents"
}

// ID is the last path segment.
func (d Document) ID() string {
	return d.Path[strings.LastIndex(d.Path, "/")+1:]
}

// Documents is a key/value store of JSON documents. Get returns
// ErrNotFound for an absent path.
type Documents interface {
	Get(ctx context.Context, path string) (Document, error)
	Put(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string) ([]Document, error)
	Close() error
}
