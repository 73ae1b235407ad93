package controllers

import (
	"net/http"

	"github.com/freshcart/grocery-backend/api/middleware"
	"github.com/freshcart/grocery-backend/api/responses"
	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

type sessionRouteResponse struct {
	Role       string `json:"role"`
	RedirectTo string `json:"redirect_to"`
}

// SessionRoute tells the client where the caller lands after sign-in.
func SessionRoute(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionRouteResponse{
			Role:       actor.Role.String(),
			RedirectTo: identity.RouteForRole(actor.Role),
		})
	}
}

type dashboardView struct {
	Role   string `json:"role"`
	Path   string `json:"path"`
	UserID string `json:"user_id"`
}

// DashboardView is the landing page served behind RoleGate. Rendering is
// left to the frontend; the payload confirms which dashboard was granted.
func DashboardView(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboardView{
			Role:   actor.Role.String(),
			Path:   r.URL.Path,
			UserID: actor.UserID.String(),
		})
	}
}
