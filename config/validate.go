package config

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap/zapcore"
)

var logFormats = []string{"json", "console"}

// Validate checks cross-field constraints cleanenv tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required"))
		}
		if c.Postgres.MaxConns < 1 {
			errs = append(errs, errors.New("postgres.max_conns must be positive"))
		}
		if c.Postgres.MinConns < 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
			errs = append(errs, errors.New("postgres.min_conns must be between 0 and max_conns"))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required"))
		}
		if c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.database is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("driver must be %q or %q, got %q", DriverPostgres, DriverMongo, c.Driver))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v, got %q", logFormats, c.Log.Format))
	}

	return errors.Join(errs...)
}
