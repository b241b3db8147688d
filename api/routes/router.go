package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
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
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Deps carries everything the router hands to controllers. Nil services
// surface as 500s from the handlers that need them.
type Deps struct {
	DB    controllers.Pinger
	Redis *redis.Client

	Sessions    session.AccessSessionChecker
	Idempotency *idempotency.Manager
	Gatherer    prometheus.Gatherer
	HTTP        *metrics.HTTPMetrics

	Auth       auth.Service
	Register   auth.RegisterService
	Users      users.Service
	Products   product.Service
	Categories categories.Service
	Cart       cart.Service
	Checkout   checkout.Service
	Orders     orders.Service
	Wishlist   wishlist.Service
	Reviews    reviews.Service
	FAQs       faqs.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, deps.HTTP),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTP),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	pingers := map[string]controllers.Pinger{}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	admin := middleware.RequireRole(enums.UserRoleAdmin, logg)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.Redis != nil {
				r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
				r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
			} else {
				r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
				r.Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
			}
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
		})

		r.Get("/products", controllers.ProductsList(deps.Products, logg))
		r.Get("/products/{slug}", controllers.ProductsGetBySlug(deps.Products, logg))
		r.Get("/categories", controllers.CategoriesList(deps.Categories, logg))
		r.Get("/reviews/product/{productId}", controllers.ReviewsForProduct(deps.Reviews, logg))
		r.Get("/faq", controllers.FAQList(deps.FAQs, logg))
		r.Get("/faq/categories", controllers.FAQCategories(deps.FAQs, logg))

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/users/me", controllers.UsersMe(deps.Users, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/my-cart", controllers.CartGet(deps.Cart, logg))
				r.Get("/price-check", controllers.CartPriceCheck(deps.Cart, logg))
				r.Post("/add", controllers.CartAdd(deps.Cart, logg))
				r.Patch("/update/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/remove/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
				r.Delete("/clear", controllers.CartClear(deps.Cart, logg))
				r.Patch("/confirm-item/{itemId}", controllers.CartConfirmItem(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				create := controllers.OrdersCreate(deps.Checkout, logg)
				if deps.Idempotency != nil {
					r.With(middleware.Idempotency(deps.Idempotency, logg)).Post("/", create)
				} else {
					r.Post("/", create)
				}
				r.Get("/my-orders", controllers.OrdersMine(deps.Orders, logg))

				r.With(admin).Get("/admin/all", controllers.AdminOrdersList(deps.Orders, logg))
				r.With(admin).Get("/admin/stats", controllers.AdminOrdersStats(deps.Orders, logg))
				r.With(admin).Patch("/{orderId}/status", controllers.AdminOrdersUpdateStatus(deps.Orders, logg))

				r.Get("/{orderId}", controllers.OrdersGet(deps.Orders, logg))
				r.Patch("/{orderId}/cancel", controllers.OrdersCancel(deps.Orders, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistGet(deps.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(deps.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(deps.Wishlist, logg))
			})

			r.Post("/reviews", controllers.ReviewsSubmit(deps.Reviews, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(admin)
				r.Get("/customers", controllers.AdminCustomers(deps.Users, logg))

				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.AdminProductsList(deps.Products, logg))
					r.Post("/", controllers.AdminProductsCreate(deps.Products, logg))
					r.Get("/{productId}", controllers.AdminProductsGet(deps.Products, logg))
					r.Put("/{productId}", controllers.AdminProductsUpdate(deps.Products, logg))
					r.Delete("/{productId}", controllers.AdminProductsDelete(deps.Products, logg))
					r.Patch("/{productId}/active", controllers.AdminProductsSetActive(deps.Products, logg))
					r.Post("/{productId}/variants", controllers.AdminVariantsAdd(deps.Products, logg))
					r.Patch("/{productId}/variants/{variantId}", controllers.AdminVariantsUpdate(deps.Products, logg))
					r.Post("/{productId}/images", controllers.AdminProductsUploadImage(deps.Products, cfg.Storage.MaxUploadMB, logg))
					r.Delete("/{productId}/images", controllers.AdminProductsRemoveImage(deps.Products, logg))
				})

				r.Route("/categories", func(r chi.Router) {
					r.Post("/", controllers.AdminCategoriesCreate(deps.Categories, logg))
					r.Put("/{categoryId}", controllers.AdminCategoriesUpdate(deps.Categories, logg))
					r.Delete("/{categoryId}", controllers.AdminCategoriesDelete(deps.Categories, logg))
				})

				r.Route("/reviews", func(r chi.Router) {
					list := controllers.AdminReviewsList(deps.Reviews, logg)
					r.Get("/", list)
					r.Get("/search", list)
					r.Get("/stats", controllers.AdminReviewsStats(deps.Reviews, logg))
					r.Get("/{reviewId}", controllers.AdminReviewsGet(deps.Reviews, logg))
					r.Patch("/{reviewId}/approve", controllers.AdminReviewsApprove(deps.Reviews, logg))
					r.Patch("/{reviewId}/reject", controllers.AdminReviewsReject(deps.Reviews, logg))
					r.Patch("/{reviewId}/toggle-status", controllers.AdminReviewsToggleStatus(deps.Reviews, logg))
					r.Patch("/{reviewId}/delete", controllers.AdminReviewsDelete(deps.Reviews, logg))
				})

				r.Route("/faq", func(r chi.Router) {
					list := controllers.AdminFAQList(deps.FAQs, logg)
					r.Get("/", list)
					r.Get("/search", list)
					r.Get("/stats", controllers.AdminFAQStats(deps.FAQs, logg))
					r.Post("/", controllers.AdminFAQCreate(deps.FAQs, logg))
					r.Put("/{faqId}", controllers.AdminFAQUpdate(deps.FAQs, logg))
					r.Delete("/{faqId}", controllers.AdminFAQDelete(deps.FAQs, logg))
					r.Patch("/{faqId}/toggle-status", controllers.AdminFAQToggleStatus(deps.FAQs, logg))
				})
			})
		})
	})

	return r
}
