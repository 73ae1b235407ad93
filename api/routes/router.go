package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshcart/grocery-backend/api/controllers"
	cartcontrollers "github.com/freshcart/grocery-backend/api/controllers/cart"
	catalogcontrollers "github.com/freshcart/grocery-backend/api/controllers/catalog"
	dashboardcontrollers "github.com/freshcart/grocery-backend/api/controllers/dashboard"
	ordercontrollers "github.com/freshcart/grocery-backend/api/controllers/orders"
	partnercontrollers "github.com/freshcart/grocery-backend/api/controllers/partners"
	"github.com/freshcart/grocery-backend/api/middleware"
	"github.com/freshcart/grocery-backend/internal/auth"
	"github.com/freshcart/grocery-backend/internal/cart"
	"github.com/freshcart/grocery-backend/internal/catalog"
	checkoutsvc "github.com/freshcart/grocery-backend/internal/checkout"
	"github.com/freshcart/grocery-backend/internal/dashboard"
	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/internal/orders"
	"github.com/freshcart/grocery-backend/internal/partners"
	"github.com/freshcart/grocery-backend/internal/users"
	"github.com/freshcart/grocery-backend/pkg/auth/session"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/freshcart/grocery-backend/pkg/logger"
	"github.com/freshcart/grocery-backend/pkg/metrics"
	pkgredis "github.com/freshcart/grocery-backend/pkg/redis"
)

// Deps carries everything the router mounts. Nil stores disable the
// middleware that needs them (rate limiting, idempotency).
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     controllers.Pinger
	RateLimit middleware.RateLimitStore
	Replays   pkgredis.IdempotencyStore
	Sessions  session.AccessSessionChecker
	Resolver  identity.Resolver
	Gatherer  prometheus.Gatherer
	HTTP      *metrics.HTTPMetrics

	Auth      auth.Service
	Register  auth.RegisterService
	Catalog   catalog.Service
	Cart      cart.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Partners  partners.Service
	Dashboard dashboard.Projection
	Profiles  users.ProfileService
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg, d.HTTP),
		middleware.Logging(logg, d.HTTP),
		middleware.CORS(cfg.HTTP.CORSOrigins),
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
	replayPolicy := middleware.IdempotencyPolicy{
		StandardTTL: cfg.Idempotency.TTL,
		CriticalTTL: cfg.Idempotency.CriticalTTL,
		LockTTL:     cfg.Idempotency.LockTTL,
	}

	authn := middleware.NewAuthenticator(cfg.JWT, d.Sessions, d.Resolver)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"database": d.DB,
			"redis":    d.Redis,
		}))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Browser dashboards redirect rather than returning JSON errors.
	loginPath := cfg.HTTP.LoginPath
	r.With(middleware.RoleGate(loginPath, enums.UserRoleOwner, authn, logg)).Get(identity.OwnerDashboardPath, controllers.DashboardView(logg))
	r.With(middleware.RoleGate(loginPath, enums.UserRoleCustomer, authn, logg)).Get(identity.CustomerDashboardPath, controllers.DashboardView(logg))
	r.With(middleware.RoleGate(loginPath, enums.UserRoleDeliveryPartner, authn, logg)).Get(identity.DeliveryDashboardPath, controllers.DashboardView(logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.RateLimit, logg)).Post("/login", controllers.AuthLogin(d.Auth, cfg, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, d.RateLimit, logg),
			middleware.Idempotency(d.Replays, replayPolicy, logg),
		).Post("/register", controllers.AuthRegister(d.Register, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, cfg, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, cfg, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", catalogcontrollers.List(d.Catalog, logg))
		r.Get("/categories", catalogcontrollers.Categories(d.Catalog, logg))
		r.Get("/{productId}", catalogcontrollers.Detail(d.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authn, logg))
		r.Use(middleware.Idempotency(d.Replays, replayPolicy, logg))

		r.Get("/session/route", controllers.SessionRoute(logg))
		r.Get("/me", controllers.ProfileGet(d.Profiles, logg))
		r.Patch("/me", controllers.ProfileUpdate(d.Profiles, logg))

		r.Route("/owner", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleOwner))
			r.Get("/dashboard", dashboardcontrollers.Summary(d.Dashboard, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogcontrollers.OwnerList(d.Catalog, logg))
				r.Post("/", catalogcontrollers.Create(d.Catalog, logg))
				r.Get("/{productId}", catalogcontrollers.OwnerDetail(d.Catalog, logg))
				r.Patch("/{productId}", catalogcontrollers.Update(d.Catalog, logg))
				r.Delete("/{productId}", catalogcontrollers.Delete(d.Catalog, logg))
				r.Post("/{productId}/stock", catalogcontrollers.AdjustStock(d.Catalog, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg))
				r.Post("/{orderId}/status", ordercontrollers.AdvanceStatus(d.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
				r.Post("/{orderId}/assign", ordercontrollers.AssignPartner(d.Orders, logg))
				r.Post("/{orderId}/payment", ordercontrollers.RecordPayment(d.Orders, logg))
			})

			r.Route("/partners", func(r chi.Router) {
				r.Get("/", partnercontrollers.List(d.Partners, logg))
				r.Post("/", partnercontrollers.Register(d.Partners, logg))
				r.Get("/available", partnercontrollers.ListAvailable(d.Partners, logg))
				r.Get("/{partnerId}", partnercontrollers.Detail(d.Partners, logg))
				r.Patch("/{partnerId}", partnercontrollers.Update(d.Partners, logg))
				r.Delete("/{partnerId}", partnercontrollers.Delete(d.Partners, logg))
				r.Post("/{partnerId}/availability", partnercontrollers.SetAvailability(d.Partners, logg))
			})
		})

		r.Route("/customer", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))
			r.Get("/dashboard", dashboardcontrollers.Summary(d.Dashboard, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(d.Cart, logg))
				r.Delete("/", cartcontrollers.Clear(d.Cart, logg))
				r.Post("/items", cartcontrollers.AddItem(d.Cart, logg))
				r.Patch("/items/{productId}", cartcontrollers.UpdateItem(d.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(d.Cart, logg))
			})
			r.Post("/checkout", cartcontrollers.Checkout(d.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg))
			})
		})

		r.Route("/delivery", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleDeliveryPartner))
			r.Get("/dashboard", dashboardcontrollers.Summary(d.Dashboard, logg))

			r.Get("/profile", partnercontrollers.Me(d.Partners, logg))
			r.Post("/profile", partnercontrollers.Register(d.Partners, logg))
			r.Post("/availability", partnercontrollers.SetOwnAvailability(d.Partners, logg))
			r.Post("/location", partnercontrollers.UpdateLocation(d.Partners, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg))
				r.Post("/{orderId}/status", ordercontrollers.AdvanceStatus(d.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
				r.Post("/{orderId}/payment", ordercontrollers.RecordPayment(d.Orders, logg))
			})
		})
	})

	return r
}
