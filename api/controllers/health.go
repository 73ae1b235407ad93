package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/freshcart/grocery-backend/api/responses"
	"github.com/freshcart/grocery-backend/pkg/config"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(context.Context) error
}

const readinessTimeout = 2 * time.Second

// HealthLive reports that the process is serving.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg != nil {
			w.Header().Set("X-FreshCart-Env", cfg.App.Env)
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady fails with 503 when any dependency is unreachable.
func HealthReady(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(map[string]string{"dependency": name}))
				return
			}
			status[name] = "ok"
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
