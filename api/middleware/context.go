package middleware

import (
	"context"
	"net/http"

	"github.com/freshcart/grocery-backend/internal/identity"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor injects the resolved caller into the context.
func WithActor(ctx context.Context, actor identity.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (identity.Actor, bool) {
	if ctx == nil {
		return identity.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(identity.Actor)
	return actor, ok
}

func UserIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.UserID.String()
}

// RequestActor returns the caller or an Unauthorized error for handlers
// mounted outside Auth by mistake.
func RequestActor(r *http.Request) (identity.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return identity.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}
