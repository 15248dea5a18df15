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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/parcelhub-backend/api/routes"
	"github.com/angelmondragon/parcelhub-backend/internal/auth"
	"github.com/angelmondragon/parcelhub-backend/internal/complaints"
	"github.com/angelmondragon/parcelhub-backend/internal/hubs"
	"github.com/angelmondragon/parcelhub-backend/internal/notifications"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/internal/payments"
	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/internal/realtime"
	"github.com/angelmondragon/parcelhub-backend/internal/shippers"
	"github.com/angelmondragon/parcelhub-backend/internal/stats"
	"github.com/angelmondragon/parcelhub-backend/internal/users"
	"github.com/angelmondragon/parcelhub-backend/internal/warehouse"
	"github.com/angelmondragon/parcelhub-backend/pkg/auth/session"
	"github.com/angelmondragon/parcelhub-backend/pkg/config"
	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/instance"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/metrics"
	"github.com/angelmondragon/parcelhub-backend/pkg/migrate"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
	"github.com/angelmondragon/parcelhub-backend/pkg/redis"
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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// buildDependencies wires repositories and services. Realtime pushes and inbox writes share one
// connection registry, and the dispatcher doubles as the order and payment notifier.
func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessions *session.Manager) (routes.Dependencies, error) {
	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	registry := realtime.NewRegistry(logg).WithMetrics(metrics.NewRealtimeMetrics(prometheus.DefaultRegisterer))

	notificationSvc, err := notifications.NewService(notifications.NewRepository(gormDB), registry)
	if err != nil {
		return routes.Dependencies{}, err
	}
	dispatcher, err := notifications.NewDispatcher(notificationSvc, registry)
	if err != nil {
		return routes.Dependencies{}, err
	}

	pricingSvc, err := pricing.NewService(pricing.NewRepository(gormDB))
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderRepo := orders.NewRepository(gormDB)
	orderSvc, err := orders.NewService(orderRepo, dbClient, outboxSvc, pricingSvc, dispatcher, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	userSvc, err := users.NewService(users.NewRepository(gormDB), cfg.Password, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	hubSvc, err := hubs.NewService(hubs.NewRepository(gormDB))
	if err != nil {
		return routes.Dependencies{}, err
	}

	warehouseSvc, err := warehouse.NewService(orderSvc, hubSvc, userSvc, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	shipperSvc, err := shippers.NewService(orderSvc, orderRepo, registry, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	paymentSvc, err := payments.NewService(
		payments.NewRepository(gormDB),
		dbClient,
		outboxSvc,
		cfg.Payment,
		payments.NewRedisReplayGuard(redisClient),
		dispatcher,
		logg,
	)
	if err != nil {
		return routes.Dependencies{}, err
	}

	complaintSvc, err := complaints.NewService(complaints.NewRepository(gormDB), orderRepo, notificationSvc, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	statsSvc, err := stats.NewService(stats.NewRepository(gormDB))
	if err != nil {
		return routes.Dependencies{}, err
	}

	rooms, err := realtime.NewRoomAuthorizer(orderRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	realtimeServer, err := realtime.NewServer(registry, rooms, cfg.CORS.AllowedOrigins(), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Store:          redisClient,
		Sessions:       sessions,
		HTTPMetrics:    metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
		Auth:           authSvc,
		Orders:         orderSvc,
		Warehouse:      warehouseSvc,
		Shippers:       shipperSvc,
		Payments:       paymentSvc,
		Pricing:        pricingSvc,
		Hubs:           hubSvc,
		Users:          userSvc,
		Complaints:     complaintSvc,
		Notifications:  notificationSvc,
		Stats:          statsSvc,
		Realtime:       realtimeServer,
	}, nil
}
