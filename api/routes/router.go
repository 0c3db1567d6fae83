package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/controllers"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/middleware"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/cart"
	checkoutsvc "github.com/Abdallah-AbouHamdan/SHOP-4U/internal/checkout"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/inventory"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/orders"
	product "github.com/Abdallah-AbouHamdan/SHOP-4U/internal/products"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/internal/reviews"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
	pkgredis "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/redis"
)

// Services bundles the domain services the router wires into handlers.
type Services struct {
	Cart      *cart.Service
	Checkout  *checkoutsvc.Service
	Orders    *orders.Service
	Products  *product.Service
	Reviews   *reviews.Service
	Inventory *inventory.Service
}

// NewRouter assembles the HTTP surface: public catalog reads, the
// authenticated buyer flow and the admin overrides.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	var (
		idemStore pkgredis.IdempotencyStore
		rlStore   middleware.RateLimiterStore
		redisP    pkgredis.Pinger
	)
	if redisClient != nil {
		idemStore = redisClient
		rlStore = redisClient
		redisP = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutUserLimit,
	)
	reviewPolicy := middleware.NewRateLimitPolicy(
		"review",
		cfg.RateLimit.ReviewWindow,
		cfg.RateLimit.ReviewIPLimit,
		cfg.RateLimit.ReviewUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/products", controllers.ProductsList(svcs.Products, logg))
			r.Get("/products/{productId}", controllers.ProductDetail(svcs.Products, logg))
			r.Get("/products/{productId}/reviews", controllers.ProductReviewsList(svcs.Reviews, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(cfg.Checkout, idemStore, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(svcs.Cart, logg))
			})

			r.With(middleware.RateLimit(checkoutPolicy, rlStore, logg)).
				Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			})

			r.Get("/products/{productId}/reviews/eligibility", controllers.ReviewEligibility(svcs.Reviews, logg))
			r.With(middleware.RateLimit(reviewPolicy, rlStore, logg)).
				Post("/reviews", controllers.ReviewSubmit(svcs.Reviews, logg))

			r.Post("/products", controllers.SellerCreateProduct(svcs.Products, logg))
			r.Patch("/products/{productId}", controllers.SellerUpdateProduct(svcs.Products, logg))
			r.Delete("/products/{productId}", controllers.SellerDeleteProduct(svcs.Products, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
			r.Use(middleware.Idempotency(cfg.Checkout, idemStore, logg))

			r.Post("/orders/{orderId}/status", controllers.AdminSetOrderStatus(svcs.Orders, logg))
			r.Post("/inventory/{productId}/restock", controllers.AdminRestock(svcs.Inventory, logg))
		})
	})

	return r
}
