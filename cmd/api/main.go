package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/freshcart/grocery-backend/api"
	"github.com/freshcart/grocery-backend/api/routes"
	"github.com/freshcart/grocery-backend/internal/auth"
	"github.com/freshcart/grocery-backend/internal/cart"
	"github.com/freshcart/grocery-backend/internal/catalog"
	"github.com/freshcart/grocery-backend/internal/checkout"
	"github.com/freshcart/grocery-backend/internal/dashboard"
	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/internal/orders"
	"github.com/freshcart/grocery-backend/internal/partners"
	"github.com/freshcart/grocery-backend/internal/users"
	"github.com/freshcart/grocery-backend/pkg/auth/session"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db"
	"github.com/freshcart/grocery-backend/pkg/logger"
	"github.com/freshcart/grocery-backend/pkg/metrics"
	"github.com/freshcart/grocery-backend/pkg/migrate"
	"github.com/freshcart/grocery-backend/pkg/redis"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	productRepo := catalog.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)

	baseResolver, err := identity.NewResolver(userRepo)
	if err != nil {
		return err
	}
	resolver, err := identity.NewCachedResolver(baseResolver, redisClient, cfg.Redis.RoleCacheTTL, logg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	catalogService, err := catalog.NewService(productRepo)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartRepo, dbClient, productRepo)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:      dbClient,
		Carts:   cartRepo,
		Orders:  orderRepo,
		Metrics: orderMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Tx:      dbClient,
		Policy:  cfg.Policy,
		Metrics: orderMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	partnerService, err := partners.NewService(partners.NewRepository(gormDB), userRepo)
	if err != nil {
		return err
	}
	projection, err := dashboard.NewProjection(gormDB, cfg.Policy.LowStockThreshold)
	if err != nil {
		return err
	}
	profileService, err := users.NewProfileService(userRepo)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		RateLimit: redisClient,
		Replays:   redisClient,
		Sessions:  sessionManager,
		Resolver:  resolver,
		Gatherer:  registry,
		HTTP:      httpMetrics,
		Auth:      authService,
		Register:  registerService,
		Catalog:   catalogService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Orders:    orderService,
		Partners:  partnerService,
		Dashboard: projection,
		Profiles:  profileService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting api server")

	return api.NewServer(addr, cfg.HTTP, handler, logg).Run(ctx)
}
