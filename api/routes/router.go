package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightbasket/brightbasket-backend/api/controllers"
	"github.com/brightbasket/brightbasket-backend/api/middleware"
	"github.com/brightbasket/brightbasket-backend/internal/cart"
	"github.com/brightbasket/brightbasket-backend/internal/giftrules"
	product "github.com/brightbasket/brightbasket-backend/internal/products"
	"github.com/brightbasket/brightbasket-backend/pkg/config"
	"github.com/brightbasket/brightbasket-backend/pkg/db"
	"github.com/brightbasket/brightbasket-backend/pkg/logger"
	"github.com/brightbasket/brightbasket-backend/pkg/metrics"
	"github.com/brightbasket/brightbasket-backend/pkg/redis"
	"github.com/brightbasket/brightbasket-backend/pkg/session"
)

// SessionManager issues, validates, and revokes storefront sessions.
type SessionManager interface {
	Issue(ctx context.Context, now time.Time) (string, string, error)
	Validate(ctx context.Context, token string) (*session.Claims, error)
	Revoke(ctx context.Context, sessionID string) error
}

// Params bundles the router's dependencies.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          redis.Pinger
	SessionManager SessionManager
	ProductService product.Service
	GiftRuleSvc    giftrules.Service
	CartService    cart.Service
	Registry       *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if p.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(p.Registry)
	}

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.Metrics(httpMetrics),
		middleware.CORS(p.Config.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, controllers.HealthDeps(p.DB, p.Redis)))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", controllers.SessionCreate(p.SessionManager, p.Logger))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.ProductService, p.Logger))
			r.Get("/{idOrSlug}", controllers.ProductGet(p.ProductService, p.Logger))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(p.SessionManager, p.Logger))

			r.Delete("/session", controllers.SessionRevoke(p.SessionManager, p.Logger))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(p.CartService, p.Logger))
				r.Get("/eligible-free-products", controllers.CartEligibleFreeProducts(p.CartService, p.Logger))
				r.Post("/add-free-product", controllers.CartAddFreeProduct(p.CartService, p.Logger))
				r.Post("/items", controllers.CartAddItem(p.CartService, p.Logger))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(p.CartService, p.Logger))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.CartService, p.Logger))
				r.Delete("/{cartId}", controllers.CartClear(p.CartService, p.Logger))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Admin(p.Config.Session, p.Logger))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(p.ProductService, p.Logger))
			r.Put("/{productId}", controllers.AdminProductUpdate(p.ProductService, p.Logger))
			r.Delete("/{productId}", controllers.AdminProductDelete(p.ProductService, p.Logger))
			r.Post("/import", controllers.AdminProductImportCSV(p.ProductService, p.Logger))
			r.Get("/export", controllers.AdminProductExportCSV(p.ProductService, p.Logger))
		})

		r.Route("/gift-rules", func(r chi.Router) {
			r.Get("/", controllers.AdminGiftRuleList(p.GiftRuleSvc, p.Logger))
			r.Post("/", controllers.AdminGiftRuleCreate(p.GiftRuleSvc, p.Logger))
			r.Get("/{ruleId}", controllers.AdminGiftRuleGet(p.GiftRuleSvc, p.Logger))
			r.Put("/{ruleId}", controllers.AdminGiftRuleUpdate(p.GiftRuleSvc, p.Logger))
			r.Delete("/{ruleId}", controllers.AdminGiftRuleDelete(p.GiftRuleSvc, p.Logger))
		})
	})

	return r
}
