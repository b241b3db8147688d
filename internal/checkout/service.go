package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartClearer interface {
	ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type stockDecrementer interface {
	DecrementStockTx(tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error)
}

// Recorder receives checkout metrics.
type Recorder interface {
	OrderCreated(paymentMethod string)
	StockConflict()
	ObserveCheckout(outcome string, d time.Duration)
}

// Service converts a user's cart into an order.
type Service interface {
	CreateFromCart(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*orders.OrderDTO, error)
}

// CreateOrderInput is what the buyer submits at checkout. CartID is optional
// and, when set, must name the caller's cart.
type CreateOrderInput struct {
	ShippingAddress *orders.ShippingAddress
	PaymentMethod   string
	CartID          *uuid.UUID
	Notes           *string
}

// Options toggles checkout policy.
type Options struct {
	RequirePriceConfirmation bool
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx      txRunner
	Carts   cart.CartRepository
	Clearer cartClearer
	Orders  orders.Repository
	Catalog *product.Repository
	Stock   stockDecrementer
	Numbers orders.NumberGenerator
	Outbox  outboxPublisher
	Metrics Recorder
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	carts   cart.CartRepository
	clearer cartClearer
	orders  orders.Repository
	catalog *product.Repository
	stock   stockDecrementer
	numbers orders.NumberGenerator
	outbox  outboxPublisher
	metrics Recorder
	logg    *logger.Logger
	opts    Options
	now     func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps, opts Options) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Clearer == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.Stock == nil {
		return nil, fmt.Errorf("stock writer required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Numbers == nil {
		deps.Numbers = orders.RandomGenerator{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &service{
		tx:      deps.Tx,
		carts:   deps.Carts,
		clearer: deps.Clearer,
		orders:  deps.Orders,
		catalog: deps.Catalog,
		stock:   deps.Stock,
		numbers: deps.Numbers,
		outbox:  deps.Outbox,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		opts:    opts,
		now:     time.Now,
	}, nil
}

var errEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty or not found")

// CreateFromCart locks the cart, prices every line at the live variant price,
// writes the order, decrements stock and empties the cart in one transaction.
// Any failure leaves cart, stock and orders untouched.
func (s *service) CreateFromCart(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	address, err := helpers.NormalizeShippingAddress(input.ShippingAddress)
	if err != nil {
		return nil, err
	}
	method, err := helpers.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	started := s.now()
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.lockCart(ctx, tx, userID, input.CartID)
		if err != nil {
			return err
		}
		if len(record.Items) == 0 {
			return errEmptyCart
		}

		items, mismatches, err := s.priceLines(ctx, tx, record.Items)
		if err != nil {
			return err
		}
		if s.opts.RequirePriceConfirmation && len(mismatches) > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Cart prices changed; confirm the new prices before checkout").
				WithDetails(map[string]any{"items": mismatches})
		}

		number, err := s.numbers.Next(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
		}

		order = &models.Order{
			UserID:            userID,
			OrderNumber:       number,
			Status:            enums.OrderStatusPending,
			ShippingStreet:    address.Street,
			ShippingCity:      address.City,
			ShippingArea:      address.Area,
			ShippingBuilding:  address.Building,
			ShippingApartment: address.Apartment,
			PaymentMethod:     method,
			TotalPrice:        helpers.OrderTotal(items),
			Notes:             trimNotes(input.Notes),
			Items:             items,
		}
		if err := s.insertOrder(ctx, tx, order); err != nil {
			return err
		}

		for _, item := range items {
			ok, err := s.stock.DecrementStockTx(tx, item.VariantID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				s.metrics.StockConflict()
				return unavailable(item.Title)
			}
		}

		if err := s.clearer.ClearTx(ctx, tx, record.ID); err != nil {
			return err
		}

		lines := make([]payloads.OrderLine, 0, len(items))
		for _, item := range items {
			lines = append(lines, payloads.OrderLine{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:   enums.EventOrderCreated,
			AggregateID: order.ID,
			Actor:       &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer.String()},
			Data: payloads.OrderCreatedEvent{
				OrderID:           order.ID,
				OrderNumber:       order.OrderNumber,
				UserID:            userID,
				TotalPrice:        order.TotalPrice,
				PaymentMethod:     method,
				CollectOnDelivery: method.SettledOnDelivery(),
				Items:             lines,
			},
		})
	})
	if err != nil {
		s.metrics.ObserveCheckout("failure", s.now().Sub(started))
		return nil, err
	}

	s.metrics.ObserveCheckout("success", s.now().Sub(started))
	s.metrics.OrderCreated(method.String())
	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	s.logg.Info(logCtx, "order placed")

	dto := orders.ToDTO(*order)
	return &dto, nil
}

const orderNumberSavepoint = "order_number"

// insertOrder writes the order under a savepoint so a clashing order number
// can be swapped for a random one without aborting the checkout transaction.
func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if err := tx.SavePoint(orderNumberSavepoint).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open savepoint")
	}
	err := s.orders.WithTx(tx).Create(ctx, order)
	if err == nil || !dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
		return wrapCreate(err)
	}
	if rbErr := tx.RollbackTo(orderNumberSavepoint).Error; rbErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "rollback to savepoint")
	}

	clashed := order.OrderNumber
	number, err := orders.RandomGenerator{}.Next(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
	}
	order.OrderNumber = number
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"clashed": clashed, "order_number": number}),
		"order number clashed; retrying with random number")

	err = s.orders.WithTx(tx).Create(ctx, order)
	if dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already issued; retry checkout")
	}
	return wrapCreate(err)
}

func wrapCreate(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
}

func (s *service) lockCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartID *uuid.UUID) (*models.Cart, error) {
	repo := s.carts.WithTx(tx)
	var (
		record *models.Cart
		err    error
	)
	if cartID != nil {
		record, err = repo.LockByIDAndUser(ctx, *cartID, userID)
	} else {
		record, err = repo.LockByUser(ctx, userID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errEmptyCart
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	return record, nil
}

// priceLines builds order lines at live prices and reports snapshots that
// disagree with them.
func (s *service) priceLines(ctx context.Context, tx *gorm.DB, cartItems []models.CartItem) ([]models.OrderItem, []helpers.PriceMismatch, error) {
	catalog := s.catalog.WithTx(tx)
	items := make([]models.OrderItem, 0, len(cartItems))
	var mismatches []helpers.PriceMismatch
	for i, line := range cartItems {
		p, err := catalog.FindByID(ctx, line.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, unavailable(line.Title)
		}
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		variant, ok := p.Variant(line.VariantID)
		if !ok {
			return nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Variant not found for product %s", p.Title)
		}
		if !p.Available() || variant.QtyAvailable < line.Quantity {
			return nil, nil, unavailable(p.Title)
		}
		if m, changed := helpers.DetectPriceMismatch(line, variant.Price); changed {
			mismatches = append(mismatches, m)
		}
		items = append(items, models.OrderItem{
			Position:  i,
			ProductID: p.ID,
			VariantID: variant.ID,
			Quantity:  line.Quantity,
			Title:     p.Title,
			Price:     variant.Price,
			Size:      variant.Size,
			Color:     variant.Color,
			Material:  variant.Material,
			Style:     variant.Style,
		})
	}
	return items, mismatches, nil
}

func unavailable(title string) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "Product %s is not available in requested quantity", title)
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type noopRecorder struct{}

func (noopRecorder) OrderCreated(string)                   {}
func (noopRecorder) StockConflict()                        {}
func (noopRecorder) ObserveCheckout(string, time.Duration) {}
