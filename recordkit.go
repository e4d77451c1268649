// Package recordkit wires the core record accessor to a configured backend.
//
// Applications usually load a config.Config, call Open to obtain a
// core.Backend and build models on top of it:
//
//	cfg, _ := config.Load()
//	backend, _ := recordkit.Open(ctx, *cfg)
//	books := core.NewModel[Book](backend, core.Table("books"))
package recordkit

import (
	"context"
	"fmt"

	"github.com/leandroluk/recordkit/config"
	"github.com/leandroluk/recordkit/core"
	"github.com/leandroluk/recordkit/driver/mongo"
	"github.com/leandroluk/recordkit/driver/postgres"
)

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Config) (core.Backend, error) {
	var (
		backend core.Backend
		err     error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		backend, err = openPostgres(ctx, cfg.Postgres)
	case config.DriverMongo:
		backend, err = openMongo(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("recordkit: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("recordkit: open %s: %w", cfg.Driver, err)
	}
	return backend, nil
}

// The helpers keep a failed *Driver from surfacing as a non-nil core.Backend.

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (core.Backend, error) {
	driver, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return driver, nil
}

func openMongo(ctx context.Context, cfg config.MongoConfig) (core.Backend, error) {
	driver, err := mongo.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return driver, nil
}
