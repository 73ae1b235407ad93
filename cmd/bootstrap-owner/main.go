package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/freshcart/grocery-backend/internal/auth"
	"github.com/freshcart/grocery-backend/internal/users"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

// bootstrap-owner provisions the single owner account. Re-running it with the
// same email reports the existing account and exits 0; a different email fails
// once an owner exists.
func main() {
	logg := logger.New(logger.Options{ServiceName: "bootstrap-owner"})

	_ = godotenv.Load()

	email := flag.String("email", "", "owner email (defaults to FRESHCART_BOOTSTRAP_OWNER_EMAIL)")
	name := flag.String("name", "", "owner full name (defaults to FRESHCART_BOOTSTRAP_OWNER_NAME)")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "bootstrap-owner",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if *email == "" {
		*email = cfg.Bootstrap.OwnerEmail
	}
	if *name == "" {
		*name = cfg.Bootstrap.OwnerName
	}
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "email": *email})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	bootstrapper, err := auth.NewOwnerBootstrapper(users.NewRepository(dbClient.DB()), cfg.Password)
	requireResource(ctx, logg, "owner bootstrapper", err)

	result, err := bootstrapper.Ensure(ctx, *email, cfg.Bootstrap.OwnerPassword, *name)
	if err != nil {
		logg.Error(ctx, "owner bootstrap failed", err)
		os.Exit(1)
	}

	ctx = logg.WithField(ctx, "user_id", result.User.ID.String())
	if !result.Created {
		logg.Info(ctx, "owner already provisioned")
		return
	}
	logg.Info(ctx, "owner created")
	if result.GeneratedPassword != "" {
		// Printed once to stdout so it never lands in structured logs.
		fmt.Println("generated owner password:", result.GeneratedPassword)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
