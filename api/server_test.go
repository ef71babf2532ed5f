package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradedash/candles"
	"github.com/rustyeddy/tradedash/journal"
	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/notify"
	"github.com/rustyeddy/tradedash/stats"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingNotifier struct {
	sent []notify.Message
}

func (r *recordingNotifier) Send(ctx context.Context, msg notify.Message) (string, error) {
	if msg.Token == "" {
		return "", notify.ErrMissingToken
	}
	r.sent = append(r.sent, msg.WithDefaults())
	return "01TESTID", nil
}

type panickingCandles struct{}

func (panickingCandles) GetTradeCandles(context.Context, string, int, int, string) (candles.Result, error) {
	panic("boom")
}

func (panickingCandles) ListAvailableTrades(context.Context) ([]candles.TradeSummary, error) {
	panic("boom")
}

func (panickingCandles) Invalidate(context.Context, string, string) ([]market.Timeframe, error) {
	panic("boom")
}

type fixture struct {
	router   *gin.Engine
	journal  *journal.DocJournal
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	j := journal.New(journal.NewMemoryStore())

	deals := []stats.Trade{
		stats.NormalizeTrade(stats.Trade{TradeID: 12345, Pair: "GBP/USD", EntryDateTime: "2025-08-27T08:15:53.416000", Direction: "BUY", EntryPrice: 1.34596, PnL: 12.5}),
		stats.NormalizeTrade(stats.Trade{TradeID: 222, Pair: "USD/JPY", EntryDateTime: "2025-08-28T10:00:00", Direction: "SELL", EntryPrice: 147.403, PnL: -3}),
	}
	summary := stats.Aggregate(deals, map[string]any{"account_name": "Main"}, nil, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, j.SaveAccountSnapshot(ctx, "1", "Main", summary, stats.GroupBySymbol(deals), nil))

	n := &recordingNotifier{}
	r := NewRouter(Deps{
		Candles:     candles.NewService(j),
		Store:       j,
		Notifier:    n,
		NotifyRate:  1,
		NotifyBurst: 2,
	})
	return &fixture{router: r, journal: j, notifier: n}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{
		"status":               "healthy",
		"service":              "trade-candles-api",
		"version":              "1.0.0",
		"notification_service": "active",
	}, body)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListTrades(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/api/trades", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["total_trades"])

	trades := body["trades"].([]any)
	first := trades[0].(map[string]any)
	assert.Equal(t, float64(222), first["trade_id"], "most recent first")
	assert.Equal(t, "SELL", first["direction"])
}

func TestTradeCandles(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/trade/12345/candles?before=2&after=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "12345", body["trade_id"])
	assert.Equal(t, "M15", body["timeframe"])
	assert.Equal(t, float64(5), body["total_candles"])
	assert.Equal(t, "generated", body["source"])

	data := body["data"].([]any)
	trade := data[2].(map[string]any)
	assert.Equal(t, true, trade["is_trade_candle"])
	assert.Equal(t, 1.34576, trade["open"])

	_, body = f.do(t, http.MethodGet, "/api/trade/12345/candles?before=1&after=1", "")
	assert.Equal(t, "cache", body["source"])
	assert.Equal(t, float64(3), body["total_candles"])
}

func TestTradeCandles_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/api/trade/12345/candles?before=0", http.StatusBadRequest, "candles_before must be between 1 and 50"},
		{"/api/trade/12345/candles?before=51", http.StatusBadRequest, "candles_before must be between 1 and 50"},
		{"/api/trade/12345/candles?after=0", http.StatusBadRequest, "candles_after must be between 1 and 50"},
		{"/api/trade/12345/candles?timeframe=M5", http.StatusBadRequest, "timeframe must be one of: M15, M30, H1, H4, D1"},
		{"/api/trade/12345/candles?before=abc", http.StatusBadRequest, "before must be an integer"},
		{"/api/trade/999/candles", http.StatusNotFound, "Trade 999 not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, body := f.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["error"])
		})
	}

	_, body := f.do(t, http.MethodGet, "/api/trade/999/candles", "")
	assert.Equal(t, "999", body["trade_id"])
}

func TestInvalidateCandles(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/api/trade/12345/candles?before=2&after=2", "")
	require.Equal(t, "generated", body["source"])
	_, body = f.do(t, http.MethodGet, "/api/trade/12345/candles?before=2&after=2", "")
	require.Equal(t, "cache", body["source"])

	w, body := f.do(t, http.MethodDelete, "/api/trade/12345/candles?timeframe=M15", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"M15"}, body["timeframes"])

	_, body = f.do(t, http.MethodGet, "/api/trade/12345/candles?before=2&after=2", "")
	assert.Equal(t, "generated", body["source"])

	w, body = f.do(t, http.MethodDelete, "/api/trade/12345/candles?timeframe=W1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "timeframe must be one of: M15, M30, H1, H4, D1", body["error"])

	w, body = f.do(t, http.MethodDelete, "/api/trade/12345/candles", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["timeframes"], 5)
}

func TestAccounts(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total_accounts"])

	w, body = f.do(t, http.MethodGet, "/api/accounts/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	account := body["account"].(map[string]any)
	assert.Equal(t, "Main", account["name"])

	w, body = f.do(t, http.MethodGet, "/api/accounts/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Account 2 not found", body["error"])
}

func TestRegisterToken(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/register-token", `{"token":"device-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Token registered successfully", body["message"])

	w, body = f.do(t, http.MethodPost, "/api/register-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Device token is required", body["error"])

	w, _ = f.do(t, http.MethodPost, "/api/register-token", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendNotification(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/send-notification", `{"token":"device-1","data":{"trade_id":12345}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Notification sent", body["message"])
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Notification", f.notifier.sent[0].Title)
	assert.Equal(t, "You have a new message.", f.notifier.sent[0].Body)
	assert.Equal(t, "12345", f.notifier.sent[0].Data["trade_id"])

	w, body = f.do(t, http.MethodPost, "/api/send-notification", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Device token is required", body["error"])
}

func TestSendNotification_RateLimited(t *testing.T) {
	f := newFixture(t)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w, _ := f.do(t, http.MethodPost, "/api/send-notification", `{"token":"t"}`)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}

func TestNotFoundAndPreflight(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Endpoint not found"}, body)

	w, _ = f.do(t, http.MethodOptions, "/api/trades", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanicBecomes500(t *testing.T) {
	r := NewRouter(Deps{Candles: panickingCandles{}, Notifier: &recordingNotifier{}})
	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/trade/12345/candles", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tradedash_candle_requests_total")
}
