package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var processAccountID string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Fetch, aggregate and store account data",
	Long: `Fetch closed deals for every enabled account (or just --account-id),
compute per-pair statistics and write them to the document store. The run
summary is printed as JSON and written to <data.dir>/accounts_meta.json.

Example:
  tradedash process --account-id 1234567`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processAccountID, "account-id", "", "process only this account")
}

func runProcess(cmd *cobra.Command, args []string) error {
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

	summary, err := p.Run(ctx, processAccountID)
	if err != nil {
		return fmt.Errorf("process accounts: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	if summary.TotalAccounts > 0 && summary.SuccessfulAccounts == 0 {
		return fmt.Errorf("all %d accounts failed", summary.TotalAccounts)
	}
	return nil
}
