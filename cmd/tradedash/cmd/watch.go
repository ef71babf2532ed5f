package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradedash/watch"
)

var watchCooldown time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-process accounts whenever the accounts file changes",
	Long: `Run the processing pipeline once, then again each time the accounts
file is written. Changes within the cooldown of the previous run are ignored.

Example:
  tradedash watch --cooldown 5s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchCooldown, "cooldown", watch.DefaultCooldown, "minimum time between runs")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer j.Close()

	p, err := newProcessor(j)
	if err != nil {
		return err
	}

	process := func(ctx context.Context) error {
		summary, err := p.Run(ctx, "")
		if err != nil {
			return err
		}
		log.Info().
			Str("run", summary.RunID).
			Int("ok", summary.SuccessfulAccounts).
			Int("failed", summary.FailedAccounts).
			Msg("run complete")
		return nil
	}

	if err := process(ctx); err != nil {
		log.Error().Err(err).Msg("initial run failed")
	}

	w, err := watch.New(cfg.Accounts.ConfigPath, watchCooldown, process)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
