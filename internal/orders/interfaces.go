package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Stats(ctx context.Context) (*Stats, error)
}

// StockRestorer returns cancelled quantities to the catalog.
type StockRestorer interface {
	RestoreStockTx(tx *gorm.DB, variantID uuid.UUID, qty int) error
}

// Recorder receives order lifecycle metrics.
type Recorder interface {
	OrderCancelled()
	StatusChanged(status string)
}
