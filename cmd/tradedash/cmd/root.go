package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradedash/config"
	"github.com/rustyeddy/tradedash/logger"
)

// annotation keys understood by the root pre-run
const (
	annSkipConfig = "skip-config"
	annJSON       = "json-output"
)

var (
	cfgFile  string
	logLevel string

	// cfg is loaded once per invocation by the root pre-run.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tradedash",
	Short: "Trading dashboard backend: accounts, trade stats and candle API",
	Long: `Tradedash manages the broker accounts of a trading dashboard, pulls their
closed deals from the account-data service, stores per-pair statistics and
serves trades and synthesized candlestick windows over HTTP.

Account commands print a single JSON object and exit nonzero when
"success" is false:
  tradedash list
  tradedash add 1234567 --name Main
  tradedash fetch-data --account-id 1234567

Long-running commands:
  tradedash serve
  tradedash process
  tradedash watch`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		log.Error().Err(err).Msg("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); environment variables override it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[annSkipConfig] == "true" {
		logger.Init(levelOr("info"))
		return nil
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		logger.Init(levelOr("info"))
		if cmd.Annotations[annJSON] == "true" {
			return emit(cmd, failure(err.Error()))
		}
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded
	logger.Init(levelOr(cfg.Logging.Level))
	return nil
}

func levelOr(fallback string) string {
	if logLevel != "" {
		return logLevel
	}
	return fallback
}
