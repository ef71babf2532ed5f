package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradedash/accounts"
	"github.com/rustyeddy/tradedash/journal"
	"github.com/rustyeddy/tradedash/processor"
	"github.com/rustyeddy/tradedash/remote"
)

func openJournal(ctx context.Context) (journal.Journal, error) {
	j, err := journal.Open(ctx, journal.Options{
		Type:      cfg.Store.Type,
		DSN:       cfg.Store.DSN,
		LogLevel:  cfg.Store.LogLevel,
		RedisAddr: cfg.Store.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return j, nil
}

// newProcessor wires the account file, the remote client and j.
func newProcessor(j journal.Journal) (*processor.Processor, error) {
	store, err := accounts.NewStore(cfg.Accounts.ConfigPath, cfg.Accounts.FallbackID)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.RemoteTimeout()
	if err != nil {
		return nil, err
	}
	client, err := remote.NewClient(cfg.Remote.BaseURL, timeout)
	if err != nil {
		return nil, err
	}
	return processor.New(store, client, j, processor.Options{
		DataDir:    cfg.Data.Dir,
		FallbackID: cfg.Accounts.FallbackID,
	}), nil
}
