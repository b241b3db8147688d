package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns the gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// orderedItems keeps lines in the sequence the cart had at checkout.
func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByID loads the order FOR UPDATE with its items.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	if err := orderedItems(r.db.WithContext(ctx)).Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns newest orders first with the total match count.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.UserID != nil {
		qb = qb.Where("orders.user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		qb = qb.Where("orders.status = ?", *filters.Status)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		like := "%" + search + "%"
		qb = qb.Where(
			"LOWER(orders.order_number) LIKE LOWER(?) OR EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND LOWER(oi.title) LIKE LOWER(?))",
			like, like,
		)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params = params.Normalize()
	var rows []models.Order
	err := qb.
		Preload("Items", orderedItems).
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

type statusRow struct {
	Status     enums.OrderStatus
	Count      int64
	TotalValue decimal.Decimal
}

// Stats groups orders by status. Revenue excludes cancelled orders.
func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	var rows []statusRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_price), 0) AS total_value").
		Group("status").
		Order("status ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalRevenue: decimal.Zero, StatusBreakdown: make([]StatusBreakdown, 0, len(rows))}
	for _, row := range rows {
		value := row.TotalValue.Round(2)
		stats.TotalOrders += row.Count
		if row.Status != enums.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(value)
		}
		stats.StatusBreakdown = append(stats.StatusBreakdown, StatusBreakdown{
			Status:     row.Status,
			Count:      row.Count,
			TotalValue: value,
		})
	}
	return stats, nil
}
