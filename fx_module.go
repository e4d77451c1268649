package recordkit

import (
	"context"

	"github.com/leandroluk/recordkit/config"
	"github.com/leandroluk/recordkit/core"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// FXModule provides a core.Backend, a *zap.Logger and a *core.Registry built
// from the config.Config found in the container, and ties the backend to the
// application lifecycle.
//
// Usage:
//
//	app := fx.New(
//	    fx.Supply(*cfg),
//	    recordkit.FXModule,
//	    fx.Invoke(func(backend core.Backend, registry *core.Registry) {
//	        core.NewModel[Book](backend, core.WithRegistry(registry))
//	    }),
//	)
var FXModule = fx.Module("recordkit",
	fx.Provide(
		ProvideLogger,
		ProvideBackend,
		core.NewRegistry,
	),
	fx.Invoke(RegisterLifecycle),
)

// ProvideLogger builds the logger described by cfg.Log.
func ProvideLogger(cfg config.Config) (*zap.Logger, error) {
	return NewLogger(cfg.Log)
}

// ProvideBackend opens the configured backend.
func ProvideBackend(cfg config.Config) (core.Backend, error) {
	return Open(context.Background(), cfg)
}

// LifecycleParams groups the components managed by RegisterLifecycle.
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Backend   core.Backend
	Logger    *zap.Logger
}

// RegisterLifecycle pings the backend on start and closes it on stop,
// flushing the logger last.
func RegisterLifecycle(params LifecycleParams) {
	logger := params.Logger.Named("recordkit")
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Backend.Ping(ctx); err != nil {
				return err
			}
			logger.Info("backend ready", zap.Stringer("kind", params.Backend.Kind()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := params.Backend.Close(ctx)
			if err != nil {
				logger.Error("backend close failed", zap.Error(err))
			}
			_ = params.Logger.Sync()
			return err
		},
	})
}
