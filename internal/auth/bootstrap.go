package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/freshcart/grocery-backend/internal/users"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/security"
	"gorm.io/gorm"
)

type ownerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateIfAbsent(ctx context.Context, dto users.CreateUserDTO) (bool, error)
	CountByRole(ctx context.Context, role enums.UserRole) (int64, error)
}

// BootstrapResult reports what Ensure did. GeneratedPassword is only set when
// a new owner was created without a configured password.
type BootstrapResult struct {
	User              *users.UserDTO
	Created           bool
	GeneratedPassword string
}

// OwnerBootstrapper provisions the single owner account out of band.
type OwnerBootstrapper struct {
	users       ownerRepository
	passwordCfg config.PasswordConfig
}

func NewOwnerBootstrapper(repo ownerRepository, passwordCfg config.PasswordConfig) (*OwnerBootstrapper, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &OwnerBootstrapper{users: repo, passwordCfg: passwordCfg}, nil
}

// Ensure creates the owner if missing. Running it again with the same email is
// a no-op; any other email is refused once an owner exists.
func (b *OwnerBootstrapper) Ensure(ctx context.Context, email, password, fullName string) (*BootstrapResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email is required")
	}

	existing, err := b.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return existingOwner(existing)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup owner")
	}

	owners, err := b.users.CountByRole(ctx, enums.UserRoleOwner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count owners")
	}
	if owners > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an owner account already exists").
			WithDetails(map[string]any{"owners": owners})
	}

	generated := ""
	if password == "" {
		generated, err = security.GenerateTempPassword(security.OwnerTempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = generated
	}
	hash, err := security.HashPassword(password, b.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	dto := users.CreateUserDTO{
		Email:          email,
		PasswordHash:   hash,
		Role:           enums.UserRoleOwner,
		EmailConfirmed: true,
	}
	if fullName != "" {
		dto.FullName = &fullName
	}
	created, err := b.users.CreateIfAbsent(ctx, dto)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner")
	}

	user, err := b.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload owner")
	}
	if !created {
		// Lost a race with another bootstrap run.
		return existingOwner(user)
	}
	return &BootstrapResult{User: users.FromModel(user), Created: true, GeneratedPassword: generated}, nil
}

func existingOwner(user *models.User) (*BootstrapResult, error) {
	if user.Role != enums.UserRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email belongs to a non-owner account").
			WithDetails(map[string]any{"role": user.Role.String()})
	}
	return &BootstrapResult{User: users.FromModel(user)}, nil
}
