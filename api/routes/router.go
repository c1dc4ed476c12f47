package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmadesk/pharmadesk-backend/api/controllers"
	"github.com/pharmadesk/pharmadesk-backend/api/middleware"
	authsvc "github.com/pharmadesk/pharmadesk-backend/internal/auth"
	"github.com/pharmadesk/pharmadesk-backend/internal/billing"
	customersvc "github.com/pharmadesk/pharmadesk-backend/internal/customers"
	productsvc "github.com/pharmadesk/pharmadesk-backend/internal/products"
	"github.com/pharmadesk/pharmadesk-backend/internal/quota"
	reportsvc "github.com/pharmadesk/pharmadesk-backend/internal/reports"
	storesvc "github.com/pharmadesk/pharmadesk-backend/internal/stores"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	pkgredis "github.com/pharmadesk/pharmadesk-backend/pkg/redis"
)

const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *pkgredis.Client,
	authService *authsvc.Service,
	engine *billing.Engine,
	gate *quota.Gate,
	productService *productsvc.Service,
	customerService *customersvc.Service,
	storeService *storesvc.Service,
	reportService *reportsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var cachePinger controllers.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	var limiter middleware.Limiter
	if redisClient != nil {
		cachePinger = redisClient
		idempotencyStore = redisClient
		limiter = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit("auth", authRateLimit, authRateWindow, limiter, logg)).
			Post("/register", controllers.AuthRegister(authService, logg))
		r.With(middleware.RateLimit("auth", authRateLimit, authRateWindow, limiter, logg)).
			Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/bills", func(r chi.Router) {
			r.Post("/", controllers.Checkout(engine, gate, logg))
			r.Get("/", controllers.BillList(engine, logg))
			r.Get("/{billId}", controllers.BillDetail(engine, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(productService, logg))
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/low-stock", controllers.ProductLowStock(productService, logg))
			r.Get("/near-expiry", controllers.ProductNearExpiry(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(productService, logg))
			r.Post("/{productId}/stock", controllers.ProductAdjustStock(productService, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(customerService, logg))
			r.Get("/", controllers.CustomerList(customerService, logg))
			r.Get("/{customerId}", controllers.CustomerDetail(customerService, logg))
			r.Patch("/{customerId}", controllers.CustomerUpdate(customerService, logg))
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/me", controllers.StoreProfile(storeService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleOwner), logg)).
				Put("/me", controllers.StoreUpdate(storeService, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/daily", controllers.ReportDaily(reportService, logg))
			r.Get("/sales-by-day", controllers.ReportSalesByDay(reportService, logg))
			r.Get("/top-products", controllers.ReportTopProducts(reportService, logg))
		})
	})

	return r
}
