package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/parcelhub-backend/api/controllers"
	"github.com/angelmondragon/parcelhub-backend/api/middleware"
	"github.com/angelmondragon/parcelhub-backend/internal/auth"
	"github.com/angelmondragon/parcelhub-backend/internal/complaints"
	"github.com/angelmondragon/parcelhub-backend/internal/hubs"
	"github.com/angelmondragon/parcelhub-backend/internal/notifications"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/internal/payments"
	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/internal/shippers"
	"github.com/angelmondragon/parcelhub-backend/internal/stats"
	"github.com/angelmondragon/parcelhub-backend/internal/users"
	"github.com/angelmondragon/parcelhub-backend/internal/warehouse"
	"github.com/angelmondragon/parcelhub-backend/pkg/auth/session"
	"github.com/angelmondragon/parcelhub-backend/pkg/config"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/parcelhub-backend/pkg/redis"
)

// KeyValueStore is the Redis surface the HTTP layer needs: idempotency records, auth rate
// limit counters and the readiness ping.
type KeyValueStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// RealtimeServer upgrades authenticated requests to websocket connections.
type RealtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, actor orders.Actor) error
}

// Dependencies is everything the API router wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Store    KeyValueStore
	Sessions session.AccessSessionChecker

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth          auth.Service
	Orders        orders.Service
	Warehouse     warehouse.Service
	Shippers      shippers.Service
	Payments      payments.Service
	Pricing       pricing.Service
	Hubs          hubs.Service
	Users         users.Service
	Complaints    complaints.Service
	Notifications notifications.Service
	Stats         stats.Service
	Realtime      RealtimeServer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins()),
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

	trackingLimiter := middleware.NewIPRateLimiter("tracking", cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst)
	quoteLimiter := middleware.NewIPRateLimiter("quote", cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst)
	webhookLimiter := middleware.NewIPRateLimiter("webhook", cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst)

	store := deps.Store
	pingers := map[string]controllers.Pinger{}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}
	if store != nil {
		pingers["redis"] = store
	}

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pingers, logg))
	})

	authRequired := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	admin := middleware.RequireRole(logg, enums.RoleAdmin)
	backOffice := middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleIntakeStaff)
	customer := middleware.RequireRole(logg, enums.RoleCustomer)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, store, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.With(authRequired).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.With(authRequired).Get("/me", controllers.AuthMe(deps.Auth, logg))
	})

	r.With(trackingLimiter.Middleware(logg)).Get("/api/tracking/{trackingNumber}", controllers.TrackOrder(deps.Orders, logg))

	r.Route("/api/payment", func(r chi.Router) {
		r.With(webhookLimiter.Middleware(logg)).Post("/webhook", controllers.PaymentWebhook(deps.Payments, logg))
		if cfg.Payment.MockEnabled {
			r.Get("/mock/checkout", controllers.MockCheckout(deps.Payments, logg))
			r.Post("/mock/{reference}/complete", controllers.MockCompletePayment(deps.Payments, logg))
		}
	})

	r.With(middleware.QueryTokenAuth(cfg.JWT, deps.Sessions, logg)).
		Get("/api/realtime/ws", controllers.RealtimeSocket(deps.Realtime, logg))

	r.Route("/api/pricing", func(r chi.Router) {
		r.With(quoteLimiter.Middleware(logg)).Post("/quote", controllers.QuotePrice(deps.Pricing, logg))
		r.Group(func(r chi.Router) {
			r.Use(authRequired, admin)
			r.Get("/rules", controllers.ListPricingRules(deps.Pricing, logg))
			r.Put("/rules/{serviceType}", controllers.UpsertPricingRule(deps.Pricing, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authRequired)
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/api/orders", func(r chi.Router) {
			r.With(customer).Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(deps.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).
					Post("/cancel", controllers.CancelOrder(deps.Orders, logg))
				r.With(backOffice).Patch("/status", controllers.UpdateOrderStatus(deps.Orders, logg))
				r.With(customer).Post("/payments", controllers.InitiatePayment(deps.Payments, logg))
				r.Get("/payments", controllers.ListOrderPayments(deps.Payments, logg))
			})
		})

		r.Route("/api/warehouse", func(r chi.Router) {
			r.Use(backOffice)
			r.Get("/orders", controllers.WarehouseQueue(deps.Warehouse, logg))
			r.Post("/orders/{orderId}/intake", controllers.WarehouseIntake(deps.Warehouse, logg))
			r.Post("/orders/{orderId}/classify", controllers.WarehouseClassify(deps.Warehouse, logg))
			r.Post("/orders/{orderId}/assign", controllers.WarehouseAssign(deps.Warehouse, logg))
		})

		r.Route("/api/shippers", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleShipper))
			r.Get("/me/orders", controllers.ShipperOrders(deps.Shippers, logg))
			r.Post("/orders/{orderId}/status", controllers.ShipperUpdateStatus(deps.Shippers, logg))
			r.Post("/orders/{orderId}/location", controllers.ShipperUpdateLocation(deps.Shippers, logg))
		})

		r.Route("/api/hubs", func(r chi.Router) {
			r.With(backOffice).Get("/", controllers.ListHubs(deps.Hubs, logg))
			r.With(admin).Post("/", controllers.CreateHub(deps.Hubs, logg))
			r.With(admin).Patch("/{hubId}", controllers.UpdateHub(deps.Hubs, logg))
		})

		r.Route("/api/areas", func(r chi.Router) {
			r.With(backOffice).Get("/", controllers.ListZones(deps.Hubs, logg))
			r.With(admin).Post("/", controllers.CreateZone(deps.Hubs, logg))
			r.With(admin).Patch("/{zoneId}", controllers.UpdateZone(deps.Hubs, logg))
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", controllers.ListUsers(deps.Users, logg))
			r.Post("/", controllers.CreateUser(deps.Users, logg))
			r.Get("/{userId}", controllers.GetUser(deps.Users, logg))
			r.Patch("/{userId}/status", controllers.UpdateUserStatus(deps.Users, logg))
		})

		r.Route("/api/complaints", func(r chi.Router) {
			r.With(customer).Post("/", controllers.FileComplaint(deps.Complaints, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).Get("/", controllers.ListComplaints(deps.Complaints, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).Get("/{complaintId}", controllers.GetComplaint(deps.Complaints, logg))
			r.With(admin).Patch("/{complaintId}/status", controllers.UpdateComplaintStatus(deps.Complaints, logg))
		})

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.With(admin).Get("/api/stats", controllers.StatsOverview(deps.Stats, logg))
	})

	return r
}
