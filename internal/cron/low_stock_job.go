package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const (
	defaultLowStockLimit = 500
	// a little over a day so the key outlives the UTC day it names
	lowStockDedupeTTL = 26 * time.Hour
)

type lowStockLister interface {
	ListLowStock(ctx context.Context, limit int) ([]product.LowStockVariant, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type alertDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LowStockAlertKey(variantID, day string) string
}

// LowStockJobParams configures the low stock alert job.
type LowStockJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Catalog lowStockLister
	Outbox  eventEmitter
	Dedupe  alertDeduper
	Limit   int
}

// NewLowStockJob builds the job that emits inventory_low_stock at most once
// per variant per UTC day.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	if params.Dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLowStockLimit
	}
	return &lowStockJob{
		logg:    params.Logger,
		db:      params.DB,
		catalog: params.Catalog,
		outbox:  params.Outbox,
		dedupe:  params.Dedupe,
		limit:   limit,
		now:     time.Now,
	}, nil
}

type lowStockJob struct {
	logg    *logger.Logger
	db      txRunner
	catalog lowStockLister
	outbox  eventEmitter
	dedupe  alertDeduper
	limit   int
	now     func() time.Time
}

func (j *lowStockJob) Name() string { return "low_stock_alert" }

// Run keeps going past per-variant failures and returns them combined.
func (j *lowStockJob) Run(ctx context.Context) error {
	rows, err := j.catalog.ListLowStock(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}

	day := j.now().UTC().Format("20060102")
	var (
		errs    error
		emitted int
	)
	for _, row := range rows {
		key := j.dedupe.LowStockAlertKey(row.VariantID.String(), day)
		fresh, err := j.dedupe.SetNX(ctx, key, "1", lowStockDedupeTTL)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dedupe %s: %w", row.VariantID, err))
			continue
		}
		if !fresh {
			continue
		}

		err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:   enums.EventInventoryLowStock,
				AggregateID: row.VariantID,
				Data: payloads.LowStockEvent{
					VariantID:    row.VariantID,
					ProductID:    row.ProductID,
					ProductTitle: row.ProductTitle,
					Color:        row.Color,
					Size:         row.Size,
					QtyAvailable: row.QtyAvailable,
					ReorderPoint: row.ReorderPoint,
				},
			})
		})
		if err != nil {
			// free the key so the next cycle retries
			errs = multierr.Append(errs, fmt.Errorf("emit %s: %w", row.VariantID, err))
			errs = multierr.Append(errs, j.dedupe.Del(ctx, key))
			continue
		}
		emitted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"emitted":    emitted,
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return errs
}
