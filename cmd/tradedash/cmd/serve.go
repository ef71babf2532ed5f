package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradedash/api"
	"github.com/rustyeddy/tradedash/candles"
	"github.com/rustyeddy/tradedash/notify"
)

var serveLogAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve trades, candlestick windows around trades, account data, push
notification endpoints and Prometheus metrics.

Example:
  tradedash serve --config tradedash.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveLogAll, "log-requests", false, "log every request at info level")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	j, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer j.Close()

	timeout, err := cfg.NotifyTimeout()
	if err != nil {
		return err
	}
	notifier, err := notify.New(cfg.Notify.WebhookURL, timeout)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Candles:     candles.NewService(j),
		Store:       j,
		Notifier:    notifier,
		NotifyRate:  cfg.Server.NotifyRate,
		NotifyBurst: cfg.Server.NotifyBurst,
		LogAll:      serveLogAll,
	})
	return api.NewServer(":"+cfg.Server.Port, router).Run(ctx)
}
