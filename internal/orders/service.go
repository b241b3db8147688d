package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order reads and post-checkout lifecycle operations.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, status string) (*pagination.Page[OrderDTO], error)
	ListAll(ctx context.Context, params pagination.Params, status, search string) (*pagination.Page[OrderDTO], error)
	Get(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error)
	GetAny(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, actor *outbox.ActorRef) (*OrderDTO, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	stock   StockRestorer
	metrics Recorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, stock StockRestorer, metrics Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		stock:   stock,
		metrics: metrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

var errOrderNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, status string) (*pagination.Page[OrderDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, params, ListFilters{UserID: &userID, Status: filter})
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, status, search string) (*pagination.Page[OrderDTO], error) {
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, params, ListFilters{Status: filter, Search: search})
}

func (s *service) list(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Page[OrderDTO], error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := &pagination.Page[OrderDTO]{
		Items: make([]OrderDTO, 0, len(rows)),
		Meta:  pagination.NewMeta(params, total),
	}
	for _, row := range rows {
		page.Items = append(page.Items, ToDTO(row))
	}
	return page, nil
}

// Get returns the order only when userID owns it.
func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) GetAny(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// Cancel returns every line's quantity to stock and marks the order
// cancelled. Only pending orders owned by userID qualify.
func (s *service) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err)
		}
		if order.UserID != userID {
			return errOrderNotFound
		}
		if !order.Status.CustomerCancelable() {
			return pkgerrors.New(pkgerrors.CodeValidation, "Only pending orders can be cancelled")
		}

		lines := make([]payloads.OrderLine, 0, len(order.Items))
		for _, item := range order.Items {
			if err := s.stock.RestoreStockTx(tx, item.VariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
			lines = append(lines, orderLine(item))
		}

		cancelledAt := s.now().UTC()
		if err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": cancelledAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:   enums.EventOrderCancelled,
			AggregateID: order.ID,
			Actor:       &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer.String()},
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Items:       lines,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCancelled()
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(logCtx, "order cancelled")
	return s.Get(ctx, orderID, userID)
}

// UpdateStatus sets any known status. Transitions are not restricted for
// admins; stock is not touched.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, actor *outbox.ActorRef) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order status")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err)
		}
		previous := order.Status
		updates := map[string]any{"status": target}
		if target == enums.OrderStatusCancelled && order.CancelledAt == nil {
			updates["cancelled_at"] = s.now().UTC()
		}
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:   enums.EventOrderStatusChanged,
			AggregateID: order.ID,
			Actor:       actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				PreviousStatus: previous,
				Status:         target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(target.String())
	return s.GetAny(ctx, orderID)
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order stats")
	}
	return stats, nil
}

// parseStatusFilter maps "", "all" to no filter.
func parseStatusFilter(raw string) (*enums.OrderStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order status")
	}
	return &status, nil
}

func orderLine(item models.OrderItem) payloads.OrderLine {
	return payloads.OrderLine{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		Price:     item.Price,
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errOrderNotFound
	}
	return pkgerrors.PassThrough(err, pkgerrors.CodeDependency, "load order")
}

type noopRecorder struct{}

func (noopRecorder) OrderCancelled()      {}
func (noopRecorder) StatusChanged(string) {}
