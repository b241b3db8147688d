// Package bootstrap is the startup sequence every binary shares: .env,
// config, logger, database and dev migrations, plus ordered cleanup.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Runtime carries the resources opened during startup. Close releases them
// in reverse order.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

// Start loads configuration for the named service and opens the database.
// Dev environments with auto-migrate enabled are migrated before returning.
func Start(ctx context.Context, service string) (*Runtime, error) {
	if err := godotenv.Load(); err != nil {
		logger.New(logger.Options{ServiceName: service}).
			Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	rt := &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}

	if rt.DB, err = db.New(ctx, cfg.DB, rt.Logger); err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), rt.Close())
	}
	return rt, nil
}

// Redis dials Redis and registers it for cleanup.
func (r *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	r.OnClose("redis", client.Close)
	return client, nil
}

// OnClose registers fn to run during Close.
func (r *Runtime) OnClose(name string, fn func() error) {
	if fn == nil {
		return
	}
	r.closers = append(r.closers, closer{name: name, close: fn})
}

// Close runs every registered closer, newest first, and reports all failures.
// It is safe to call more than once.
func (r *Runtime) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	r.closers = nil
	return errs
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the env and
// service kind as log fields.
func (r *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = r.Logger.WithFields(ctx, map[string]any{
		"env":         r.Config.App.Env,
		"serviceKind": r.Config.Service.Kind,
	})
	return ctx, stop
}

// Main starts the runtime, hands it to run and exits non-zero when startup or
// run fails. A run that ends with context.Canceled is a clean shutdown.
func Main(service string, run func(ctx context.Context, rt *Runtime) error) {
	rt, err := Start(context.Background(), service)
	if err != nil {
		logger.New(logger.Options{ServiceName: service}).
			Error(context.Background(), "startup failed", err)
		os.Exit(1)
	}

	ctx, stop := rt.SignalContext()
	err = run(ctx, rt)
	stop()
	if cerr := rt.Close(); cerr != nil {
		rt.Logger.Error(ctx, "cleanup failed", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, service+" stopped unexpectedly", err)
		os.Exit(1)
	}
	rt.Logger.Info(ctx, service+" shut down gracefully")
}
