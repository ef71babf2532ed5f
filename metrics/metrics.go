// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedash_fetch_runs_total",
			Help: "Fetch-and-process runs by outcome",
		},
		[]string{"result"},
	)

	accountFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedash_account_fetch_total",
			Help: "Per-account fetch attempts by outcome",
		},
		[]string{"result"},
	)

	accountFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradedash_account_fetch_duration_seconds",
			Help:    "Time to fetch, aggregate and persist one account",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	tradesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradedash_trades_processed_total",
			Help: "Closed deals aggregated across all runs",
		},
	)

	accountWinRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradedash_account_win_rate",
			Help: "Overall win rate percentage (0-100) from the latest run",
		},
		[]string{"account"},
	)

	candleRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedash_candle_requests_total",
			Help: "Trade candle requests by source",
		},
		[]string{"source"},
	)

	notificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradedash_notifications_total",
			Help: "Push notifications by outcome",
		},
		[]string{"result"},
	)
)

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordFetchRun counts a completed fetch-and-process run.
func RecordFetchRun(failed int) {
	if failed > 0 {
		fetchRunTotal.WithLabelValues("partial").Inc()
		return
	}
	fetchRunTotal.WithLabelValues("success").Inc()
}

// RecordAccountFetch records one account's processing outcome.
func RecordAccountFetch(started time.Time, trades int, err error) {
	accountFetchTotal.WithLabelValues(result(err)).Inc()
	accountFetchDuration.Observe(time.Since(started).Seconds())
	if err == nil {
		tradesProcessed.Add(float64(trades))
	}
}

// SetAccountWinRate publishes the latest overall win rate for an account.
func SetAccountWinRate(accountID string, rate float64) {
	accountWinRate.WithLabelValues(accountID).Set(rate)
}

// RecordCandleRequest counts a served candle window by source
// ("cache" or "generated").
func RecordCandleRequest(source string) {
	candleRequestTotal.WithLabelValues(source).Inc()
}

// RecordNotification counts a push delivery attempt.
func RecordNotification(err error) {
	notificationTotal.WithLabelValues(result(err)).Inc()
}
