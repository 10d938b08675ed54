package main

import (
	"context"
	"errors"

	"github.com/smc1992/leadgen-ai/internal/config"
	"github.com/smc1992/leadgen-ai/internal/resilience"
	"github.com/smc1992/leadgen-ai/internal/store"
)

// openStore constructs the configured datastore. A missing database URL is a
// deployment problem, reported as service-unavailable rather than a generic
// failure.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, resilience.Classify(resilience.ClassUnavailable, errors.New("store: no database url configured"))
	}

	switch cfg.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.DatabaseURL)
	case "", "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns, cfg.MinConns)
	default:
		return nil, resilience.Classify(resilience.ClassBadRequest, errors.New("store: unsupported driver "+cfg.Driver))
	}
}
