package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rvstore-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/rvstore-backend/api/controllers/admin"
	"github.com/angelmondragon/rvstore-backend/api/middleware"
	"github.com/angelmondragon/rvstore-backend/internal/auth"
	"github.com/angelmondragon/rvstore-backend/internal/boxes"
	"github.com/angelmondragon/rvstore-backend/internal/categories"
	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/internal/ledger"
	"github.com/angelmondragon/rvstore-backend/internal/preferences"
	products "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/internal/purchases"
	"github.com/angelmondragon/rvstore-backend/internal/users"
	"github.com/angelmondragon/rvstore-backend/pkg/auth/session"
	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/rvstore-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, oldAccessID string, userID int64, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// redisStore is the slice of the redis client used by rate limiting and idempotency.
type redisStore interface {
	pkgredis.IdempotencyStore
	middleware.RateLimiter
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Auth        auth.Service
	Register    auth.RegisterService
	Users       users.Service
	Ledger      ledger.Service
	Purchases   purchases.Service
	Products    products.Service
	Categories  categories.Service
	Boxes       boxes.Service
	Preferences preferences.Service
	History     history.Service
}

// Observability carries the optional metrics wiring.
type Observability struct {
	HTTP     *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	store redisStore,
	sessions sessionManager,
	svc Services,
	obs Observability,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(obs.HTTP),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if cfg.FeatureFlags.ExposeMetrics && obs.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	// Public auth surface.
	r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/api/v1/authenticate", controllers.AuthLogin(svc.Auth, logg))
	r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/api/v1/admin/authenticate", controllers.AdminAuthLogin(svc.Auth, logg))
	r.With(middleware.AuthRateLimit(registerPolicy, store, logg)).Post("/api/v1/register", controllers.AuthRegister(svc.Register, logg))
	r.Post("/api/v1/auth/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
	r.Post("/api/v1/auth/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Get("/api/v1/user", controllers.CurrentUser(svc.Users, logg))
		r.Patch("/api/v1/user", controllers.UpdateCurrentUser(svc.Users, logg))
		r.Post("/api/v1/user/changePassword", controllers.ChangePassword(svc.Users, logg))
		r.Post("/api/v1/user/deposit", controllers.Deposit(svc.Ledger, logg))
		r.Get("/api/v1/user/purchaseHistory", controllers.UserPurchaseHistory(svc.History, logg))
		r.Get("/api/v1/user/purchaseHistory/{purchaseId}", controllers.UserPurchase(svc.History, logg))
		r.Get("/api/v1/user/depositHistory", controllers.UserDepositHistory(svc.History, logg))
		r.Get("/api/v1/user/depositHistory/{depositId}", controllers.UserDeposit(svc.History, logg))

		r.Get("/api/v1/products", controllers.ListProducts(svc.Products, logg))
		r.Get("/api/v1/products/{barcode}", controllers.GetProduct(svc.Products, logg))
		r.Post("/api/v1/products/{barcode}/purchase", controllers.PurchaseProduct(svc.Purchases, logg))

		r.Get("/api/v1/categories", controllers.ListCategories(svc.Categories, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.ForAdmin(), sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(store, logg))

		const prefix = "/api/v1/admin"

		r.Get(prefix+"/products", admincontrollers.ListProducts(svc.Products, logg))
		r.Post(prefix+"/products", admincontrollers.CreateProduct(svc.Products, logg))
		r.Get(prefix+"/products/{barcode}", admincontrollers.GetProduct(svc.Products, logg))
		r.Patch(prefix+"/products/{barcode}", admincontrollers.UpdateProduct(svc.Products, logg))
		r.Delete(prefix+"/products/{barcode}", admincontrollers.DeleteProduct(svc.Products, logg))
		r.Post(prefix+"/products/{barcode}/buyIn", admincontrollers.ProductBuyIn(svc.Products, logg))
		r.Get(prefix+"/products/{barcode}/purchaseHistory", admincontrollers.ProductPurchaseHistory(svc.History, logg))

		r.Get(prefix+"/boxes", admincontrollers.ListBoxes(svc.Boxes, logg))
		r.Post(prefix+"/boxes", admincontrollers.CreateBox(svc.Boxes, logg))
		r.Get(prefix+"/boxes/{boxBarcode}", admincontrollers.GetBox(svc.Boxes, logg))
		r.Patch(prefix+"/boxes/{boxBarcode}", admincontrollers.UpdateBox(svc.Boxes, logg))
		r.Delete(prefix+"/boxes/{boxBarcode}", admincontrollers.DeleteBox(svc.Boxes, logg))
		r.Post(prefix+"/boxes/{boxBarcode}/buyIn", admincontrollers.BoxBuyIn(svc.Boxes, logg))

		r.Get(prefix+"/categories", admincontrollers.ListCategories(svc.Categories, logg))
		r.Post(prefix+"/categories", admincontrollers.CreateCategory(svc.Categories, logg))
		r.Get(prefix+"/categories/{categoryId}", admincontrollers.GetCategory(svc.Categories, logg))
		r.Patch(prefix+"/categories/{categoryId}", admincontrollers.UpdateCategory(svc.Categories, logg))
		r.Delete(prefix+"/categories/{categoryId}", admincontrollers.DeleteCategory(svc.Categories, logg))

		r.Get(prefix+"/users", admincontrollers.ListUsers(svc.Users, logg))
		r.Get(prefix+"/users/{userId}", admincontrollers.GetUser(svc.Users, logg))
		r.Post(prefix+"/users/{userId}/changeRole", admincontrollers.ChangeUserRole(svc.Users, logg))
		r.Get(prefix+"/users/{userId}/purchaseHistory", admincontrollers.UserPurchaseHistory(svc.History, logg))
		r.Get(prefix+"/users/{userId}/depositHistory", admincontrollers.UserDepositHistory(svc.History, logg))
		r.Get(prefix+"/users/{userId}/reconcile", admincontrollers.ReconcileUser(svc.Ledger, logg))

		r.Get(prefix+"/purchaseHistory", admincontrollers.PurchaseHistory(svc.History, logg))
		r.Get(prefix+"/purchaseHistory/{purchaseId}", admincontrollers.Purchase(svc.History, logg))
		r.Get(prefix+"/depositHistory", admincontrollers.DepositHistory(svc.History, logg))
		r.Get(prefix+"/depositHistory/{depositId}", admincontrollers.Deposit(svc.History, logg))

		r.Get(prefix+"/preferences", admincontrollers.ListPreferences(svc.Preferences, logg))
		r.Get(prefix+"/preferences/{key}", admincontrollers.GetPreference(svc.Preferences, logg))
		r.Patch(prefix+"/preferences/{key}", admincontrollers.UpdatePreference(svc.Preferences, logg))
		r.Get(prefix+"/defaultMargin", admincontrollers.GetDefaultMargin(svc.Preferences, logg))
		r.Patch(prefix+"/defaultMargin", admincontrollers.UpdateDefaultMargin(svc.Preferences, logg))
	})

	return r
}
