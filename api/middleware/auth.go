package middleware

import (
	"net/http"
	"strings"

	"github.com/freshcart/grocery-backend/api/responses"
	"github.com/freshcart/grocery-backend/internal/identity"
	pkgAuth "github.com/freshcart/grocery-backend/pkg/auth"
	"github.com/freshcart/grocery-backend/pkg/auth/session"
	"github.com/freshcart/grocery-backend/pkg/config"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
)

// AccessCookieName carries the access token for browser navigation.
const AccessCookieName = "fc_access"

// Authenticator turns a request into an actor. Auth and RoleGate share it.
type Authenticator struct {
	cfg      config.JWTConfig
	verifier session.AccessSessionChecker
	resolver identity.Resolver
}

// NewAuthenticator builds the request authenticator. verifier may be nil.
func NewAuthenticator(cfg config.JWTConfig, verifier session.AccessSessionChecker, resolver identity.Resolver) *Authenticator {
	return &Authenticator{cfg: cfg, verifier: verifier, resolver: resolver}
}

// Authenticate validates the presented token, its session and the user's role.
func (a *Authenticator) Authenticate(r *http.Request) (identity.Actor, error) {
	token := AccessToken(r)
	if token == "" {
		return identity.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return identity.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return identity.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if a.verifier != nil {
		ok, err := a.verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return identity.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return identity.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	if a.resolver == nil {
		return identity.Actor{}, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver unavailable")
	}
	actor, err := a.resolver.Resolve(r.Context(), identity.Identity{
		UserID:         claims.UserID,
		Email:          claims.Email,
		EmailConfirmed: claims.EmailConfirmed,
	})
	if err != nil {
		return identity.Actor{}, err
	}
	return actor, nil
}

// Auth validates the caller and seeds the request context with the actor.
func Auth(authn *Authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := authn.Authenticate(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID.String())
				ctx = logg.WithActorRole(ctx, actor.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessToken reads the bearer header, falling back to the access cookie.
func AccessToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookie, err := r.Cookie(AccessCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
