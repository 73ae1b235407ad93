package middleware

import (
	"errors"
	"net/http"

	"github.com/freshcart/grocery-backend/api/responses"
	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

// RequireRole lets the request through only when the actor holds one of roles.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			for _, role := range roles {
				if actor.Is(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}

// RoleGate guards browser dashboards. It redirects instead of rendering
// JSON errors: no session goes to loginPath, an unresolvable role goes to
// the fallback page and a wrong role goes to the caller's own dashboard.
func RoleGate(loginPath string, role enums.UserRole, authn *Authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AccessToken(r) == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			actor, err := authn.Authenticate(r)
			if err != nil {
				target := identity.FallbackPath
				if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) && !errors.Is(err, identity.ErrRoleUnresolved) {
					target = loginPath
				}
				if logg != nil {
					ctx := logg.WithField(r.Context(), "redirect", target)
					logg.Warn(ctx, "role_gate.denied")
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}

			if !actor.Is(role) {
				http.Redirect(w, r, identity.RouteForRole(actor.Role), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
