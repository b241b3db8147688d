package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/faqs"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	bootstrap.Main("api", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(ctx, cfg, logg, rt.DB, redisClient, sessionManager, metrics.NewOrderMetrics(reg))
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	deps.Gatherer = reg
	deps.HTTP = metrics.NewHTTPMetrics(reg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

func buildDeps(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	orderMetrics *metrics.OrderMetrics,
) (routes.Deps, error) {
	conn := dbClient.DB()
	hasher := security.NewHasher(cfg.Password)
	userRepo := users.NewRepository(conn)
	catalogRepo := product.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	stock := product.NewStockWriter()
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Hasher:         hasher,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, Hasher: hasher})
	if err != nil {
		return routes.Deps{}, err
	}
	userService, err := users.NewService(userRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	var productService product.Service
	if cfg.Storage.Enabled() {
		images, err := storage.NewClient(ctx, cfg.Storage, logg)
		if err != nil {
			return routes.Deps{}, err
		}
		productService, err = product.NewService(catalogRepo, dbClient, images, logg)
		if err != nil {
			return routes.Deps{}, err
		}
	} else {
		logg.Warn(ctx, "object storage not configured; image uploads disabled")
		productService, err = product.NewService(catalogRepo, dbClient, nil, logg)
		if err != nil {
			return routes.Deps{}, err
		}
	}

	categoryService, err := categories.NewService(categories.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	cartService, err := cart.NewService(cartRepo, dbClient, catalogRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:      dbClient,
		Carts:   cartRepo,
		Clearer: cartService,
		Orders:  orderRepo,
		Catalog: catalogRepo,
		Stock:   stock,
		Numbers: orders.NewCounterGenerator(redisClient, logg),
		Outbox:  events,
		Metrics: orderMetrics,
		Logger:  logg,
	}, checkout.Options{RequirePriceConfirmation: cfg.Checkout.RequirePriceConfirmation})
	if err != nil {
		return routes.Deps{}, err
	}
	orderService, err := orders.NewService(orderRepo, dbClient, events, stock, orderMetrics, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ProductRepo:  catalogRepo,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	reviewService, err := reviews.NewService(reviews.ServiceParams{
		ReviewRepo:  reviews.NewRepository(conn),
		ProductRepo: catalogRepo,
		Logger:      logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	faqService, err := faqs.NewService(faqs.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	idem, err := idempotency.NewManager(redisClient, cfg.Checkout.IdempotencyTTL)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		Idempotency: idem,
		Auth:        authService,
		Register:    registerService,
		Users:       userService,
		Products:    productService,
		Categories:  categoryService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Orders:      orderService,
		Wishlist:    wishlistService,
		Reviews:     reviewService,
		FAQs:        faqService,
	}, nil
}
