package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradedash/candles"
	"github.com/rustyeddy/tradedash/market"
)

var candlesCmd = &cobra.Command{
	Use:   "candles",
	Short: "Manage cached candle windows",
	Long: `Cached candle windows never expire. Invalidate one after correcting a
trade so the next request regenerates it.

Example:
  tradedash candles invalidate 12345 --timeframe M15`,
}

var invalidateTimeframe string

var candlesInvalidateCmd = &cobra.Command{
	Use:         "invalidate <trade-id>",
	Short:       "Drop the cached candle windows of a trade",
	Args:        cobra.ExactArgs(1),
	Annotations: jsonAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal(cmd.Context())
		if err != nil {
			return emit(cmd, failure(err.Error()))
		}
		defer j.Close()
		return emit(cmd, invalidateCandles(cmd.Context(), candles.NewService(j), args[0], invalidateTimeframe))
	},
}

func init() {
	rootCmd.AddCommand(candlesCmd)
	candlesCmd.AddCommand(candlesInvalidateCmd)
	candlesInvalidateCmd.Flags().StringVar(&invalidateTimeframe, "timeframe", "", "timeframe to drop (default all)")
}

type invalidator interface {
	Invalidate(ctx context.Context, tradeID, timeframe string) ([]market.Timeframe, error)
}

func invalidateCandles(ctx context.Context, svc invalidator, tradeID, timeframe string) response {
	tfs, err := svc.Invalidate(ctx, tradeID, timeframe)
	var verr *candles.ValidationError
	if errors.As(err, &verr) {
		return failure(verr.Message)
	}
	if err != nil {
		return failure(err.Error())
	}
	return response{
		"success":    true,
		"trade_id":   tradeID,
		"timeframes": tfs,
		"message":    "Candle cache cleared for trade " + tradeID,
	}
}
