// Package identity turns an authenticated principal into an actor with a role.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRoleUnresolved marks callers whose token was valid but who map to no usable role.
var ErrRoleUnresolved = errors.New("role unresolved")

// Identity is what the authentication boundary knows about a caller.
type Identity struct {
	UserID         uuid.UUID
	Email          string
	EmailConfirmed bool
}

// Actor is the caller passed explicitly into every domain operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Is reports whether the actor holds the role.
func (a Actor) Is(role enums.UserRole) bool {
	return a.Role == role
}

// Resolver maps users to their single role.
type Resolver interface {
	ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
	Resolve(ctx context.Context, id Identity) (Actor, error)
}

type roleStore interface {
	FindRole(ctx context.Context, id uuid.UUID) (enums.UserRole, error)
}

type storeResolver struct {
	store roleStore
}

// NewResolver builds a resolver reading the users table.
func NewResolver(store roleStore) (Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("role store is required")
	}
	return &storeResolver{store: store}, nil
}

func (r *storeResolver) ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrRoleUnresolved, "unknown user")
	}
	role, err := r.store.FindRole(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrRoleUnresolved, "unknown user")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user role")
	}
	if !role.IsValid() {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrRoleUnresolved, "user has no valid role")
	}
	return role, nil
}

func (r *storeResolver) Resolve(ctx context.Context, id Identity) (Actor, error) {
	return resolveWith(ctx, r, id)
}

func resolveWith(ctx context.Context, r Resolver, id Identity) (Actor, error) {
	role, err := r.ResolveRole(ctx, id.UserID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: id.UserID, Role: role}, nil
}
