package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rvstore-backend/api/controllers"
	"github.com/angelmondragon/rvstore-backend/api/routes"
	"github.com/angelmondragon/rvstore-backend/internal/auth"
	"github.com/angelmondragon/rvstore-backend/internal/boxes"
	"github.com/angelmondragon/rvstore-backend/internal/categories"
	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/internal/ledger"
	"github.com/angelmondragon/rvstore-backend/internal/preferences"
	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/internal/purchases"
	"github.com/angelmondragon/rvstore-backend/internal/users"
	"github.com/angelmondragon/rvstore-backend/pkg/auth/session"
	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/angelmondragon/rvstore-backend/pkg/metrics"
	"github.com/angelmondragon/rvstore-backend/pkg/migrate"
	"github.com/angelmondragon/rvstore-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(logg, "session manager", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storeMetrics := metrics.NewStoreMetrics(registry)

	services, err := buildServices(cfg, logg, dbClient, sessionManager, storeMetrics)
	requireResource(logg, "services", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	handler := routes.NewRouter(
		cfg,
		logg,
		map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
		redisClient,
		sessionManager,
		services,
		routes.Observability{HTTP: metrics.NewHTTPMetrics(registry), Gatherer: registry},
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if err != nil {
		logg.Error(ctx, "shutdown finished with errors", err)
		exitCode = 1
	} else {
		logg.Info(ctx, "api server stopped")
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, storeMetrics *metrics.StoreMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	historyRepo := history.NewRepository(conn)
	productRepo := productsvc.NewRepository(conn)
	categoryRepo := categories.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:           userRepo,
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	prefsService, err := preferences.NewService(preferences.NewRepository(conn), categoryRepo, cfg.Store.FallbackMargin, logg)
	if err != nil {
		return routes.Services{}, err
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:      dbClient,
		Repo:    ledgerRepo,
		History: historyRepo,
		Logger:  logg,
		Metrics: storeMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	productService, err := productsvc.NewService(productsvc.ServiceParams{
		Repo:    productRepo,
		DB:      dbClient,
		History: historyRepo,
		Margins: prefsService,
		Logger:  logg,
		Metrics: storeMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		DB:       dbClient,
		Products: productRepo,
		Ledger:   ledgerRepo,
		History:  historyRepo,
		Logger:   logg,
		Metrics:  storeMetrics,
		MaxCount: cfg.Store.MaxPurchaseCount,
	})
	if err != nil {
		return routes.Services{}, err
	}

	categoryService, err := categories.NewService(categories.ServiceParams{
		Repo:     categoryRepo,
		DB:       dbClient,
		History:  historyRepo,
		Defaults: prefsService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	boxService, err := boxes.NewService(boxes.NewRepository(conn), productRepo, productService, dbClient, logg)
	if err != nil {
		return routes.Services{}, err
	}

	historyService, err := history.NewService(historyRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authService,
		Register:    registerService,
		Users:       usersService,
		Ledger:      ledgerService,
		Purchases:   purchaseService,
		Products:    productService,
		Categories:  categoryService,
		Boxes:       boxService,
		Preferences: prefsService,
		History:     historyService,
	}, nil
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "resource not working: "+resource, err)
	os.Exit(1)
}
