package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pharmaveille/pharmadz/internal/store"
)

// initStore validates the config for the given command mode and opens the
// database-backed store.
func initStore(ctx context.Context, mode string) (*store.PostgresStore, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "cmd: open store")
	}
	return st, nil
}
