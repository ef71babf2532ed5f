package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/candles"
	"github.com/rustyeddy/tradedash/journal"
	"github.com/rustyeddy/tradedash/notify"
)

func fail(c *gin.Context, status int, msg string, extra ...any) {
	body := gin.H{"success": false, "error": msg}
	for i := 0; i+1 < len(extra); i += 2 {
		body[fmt.Sprint(extra[i])] = extra[i+1]
	}
	c.JSON(status, body)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "healthy",
		"service":              ServiceName,
		"version":              Version,
		"notification_service": "active",
	})
}

func (h *handlers) listTrades(c *gin.Context) {
	trades, err := h.Candles.ListAvailableTrades(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"total_trades": len(trades),
		"trades":       trades,
	})
}

func (h *handlers) tradeCandles(c *gin.Context) {
	tradeID := c.Param("id")

	before, err := candles.ParseWindow("before", c.Query("before"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	after, err := candles.ParseWindow("after", c.Query("after"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	timeframe := c.DefaultQuery("timeframe", "M15")

	res, err := h.Candles.GetTradeCandles(c.Request.Context(), tradeID, before, after, timeframe)
	var verr *candles.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Message)
		return
	case errors.Is(err, candles.ErrTradeNotFound):
		fail(c, http.StatusNotFound, fmt.Sprintf("Trade %s not found", tradeID), "trade_id", tradeID)
		return
	case errors.Is(err, candles.ErrGenerate):
		fail(c, http.StatusInternalServerError, "Failed to generate candlestick data", "trade_id", tradeID)
		return
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error(), "trade_id", tradeID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"trade_id":       res.TradeID,
		"timeframe":      res.Timeframe,
		"candles_before": res.CandlesBefore,
		"candles_after":  res.CandlesAfter,
		"total_candles":  res.TotalCandles,
		"data":           res.Data,
		"source":         res.Source,
	})
}

func (h *handlers) invalidateCandles(c *gin.Context) {
	tradeID := c.Param("id")
	tfs, err := h.Candles.Invalidate(c.Request.Context(), tradeID, c.Query("timeframe"))
	var verr *candles.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Message)
		return
	case err != nil:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error(), "trade_id", tradeID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"trade_id":   tradeID,
		"timeframes": tfs,
	})
}

func (h *handlers) listAccounts(c *gin.Context) {
	accounts, err := h.Store.ListAccountsWithData(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"total_accounts": len(accounts),
		"accounts":       accounts,
	})
}

func (h *handlers) getAccount(c *gin.Context) {
	id := c.Param("id")
	data, err := h.Store.GetAccountData(c.Request.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		fail(c, http.StatusNotFound, fmt.Sprintf("Account %s not found", id))
		return
	}
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": data.Account,
		"summary": data.Summary,
		"trades":  data.Trades,
		"forex":   data.Forex,
	})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *handlers) registerToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Token == "" {
		fail(c, http.StatusBadRequest, "Device token is required")
		return
	}
	if err := h.Store.SaveDeviceToken(c.Request.Context(), req.Token); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info().Msg("device token registered")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token registered successfully"})
}

type notificationRequest struct {
	Token string         `json:"token"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

func (h *handlers) sendNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Token == "" {
		fail(c, http.StatusBadRequest, "Device token is required")
		return
	}

	data := make(map[string]string, len(req.Data))
	for k, v := range req.Data {
		data[k] = fmt.Sprint(v)
	}

	id, err := h.Notifier.Send(c.Request.Context(), notify.Message{
		Token: req.Token,
		Title: req.Title,
		Body:  req.Body,
		Data:  data,
	})
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification sent", "id": id})
}
