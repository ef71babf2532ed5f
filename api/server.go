// Package api exposes trades, candle windows, push registration and
// health over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/tradedash/candles"
	"github.com/rustyeddy/tradedash/journal"
	"github.com/rustyeddy/tradedash/market"
	"github.com/rustyeddy/tradedash/notify"
)

const (
	ServiceName = "trade-candles-api"
	Version     = "1.0.0"
)

// CandleService serves candle windows and the trade list.
type CandleService interface {
	GetTradeCandles(ctx context.Context, tradeID string, before, after int, timeframe string) (candles.Result, error)
	ListAvailableTrades(ctx context.Context) ([]candles.TradeSummary, error)
	Invalidate(ctx context.Context, tradeID, timeframe string) ([]market.Timeframe, error)
}

// Store is the part of the journal the handlers read and write directly.
type Store interface {
	SaveDeviceToken(ctx context.Context, token string) error
	ListAccountsWithData(ctx context.Context) ([]journal.AccountDoc, error)
	GetAccountData(ctx context.Context, accountID string) (journal.AccountData, error)
}

// Deps are the collaborators of the router.
type Deps struct {
	Candles  CandleService
	Store    Store
	Notifier notify.Notifier

	// NotifyRate and NotifyBurst bound /api/send-notification.
	NotifyRate  float64
	NotifyBurst int
	// LogAll logs successful requests at info level.
	LogAll bool
}

type handlers struct {
	Deps
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.NotifyRate <= 0 {
		d.NotifyRate = 5
	}
	if d.NotifyBurst <= 0 {
		d.NotifyBurst = 10
	}
	h := &handlers{Deps: d}

	r := gin.New()
	r.Use(recovery(), requestLogger(d.LogAll), cors())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/trades", h.listTrades)
		api.GET("/trade/:id/candles", h.tradeCandles)
		api.DELETE("/trade/:id/candles", h.invalidateCandles)
		api.GET("/accounts", h.listAccounts)
		api.GET("/accounts/:id", h.getAccount)
		api.POST("/register-token", h.registerToken)
		api.POST("/send-notification",
			rateLimit(rate.NewLimiter(rate.Limit(d.NotifyRate), d.NotifyBurst)),
			h.sendNotification)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found"})
	})
	return r
}

// Server runs the router on an http.Server.
type Server struct {
	server *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{server: &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("api server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("api server stopped")
	return nil
}
