package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/cron"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func main() {
	bootstrap.Main("cron-worker", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg, conn := rt.Config, rt.Logger, rt.DB.DB()

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}

	outboxRepo := outbox.NewRepository(conn)
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:  logg,
		DB:      rt.DB,
		Catalog: product.NewRepository(conn),
		Outbox:  outbox.NewService(outboxRepo, logg),
		Dedupe:  redisClient,
		Limit:   cfg.Cron.LowStockLimit,
	})
	if err != nil {
		return fmt.Errorf("low stock job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           rt.DB,
		Repository:   outboxRepo,
		DLQ:          outbox.NewDLQRepository(conn),
		Retention:    cfg.Outbox.Retention,
		DLQRetention: cfg.Outbox.DLQRetention,
		MinAttempts:  cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("outbox retention job: %w", err)
	}

	jobs := cron.NewRegistry()
	for _, entry := range []cron.Entry{
		{Job: lowStock, Every: cfg.Cron.LowStockEvery},
		{Job: retention, Every: cfg.Cron.RetentionEvery},
	} {
		if err := jobs.Schedule(entry.Job, entry.Every); err != nil {
			return err
		}
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	go metrics.Serve(ctx, cfg.Service.MetricsAddr, reg, logg)
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}
