package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) (*models.User, error)
}

// ProfileService lets any signed-in user read and edit their own contact
// details. Email and role are not editable here.
type ProfileService interface {
	Me(ctx context.Context, actor identity.Actor) (*UserDTO, error)
	UpdateProfile(ctx context.Context, actor identity.Actor, input UpdateProfileDTO) (*UserDTO, error)
}

type profileService struct {
	repo profileRepository
}

func NewProfileService(repo profileRepository) (ProfileService, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &profileService{repo: repo}, nil
}

func (s *profileService) Me(ctx context.Context, actor identity.Actor) (*UserDTO, error) {
	if !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, profileLookupError(err, "load profile")
	}
	return FromModel(user), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, actor identity.Actor, input UpdateProfileDTO) (*UserDTO, error) {
	if !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	input.FullName = trimmed(input.FullName)
	input.Phone = trimmed(input.Phone)
	input.Address = trimmed(input.Address)
	if input.FullName != nil && *input.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be blank")
	}

	user, err := s.repo.UpdateProfile(ctx, actor.UserID, input)
	if err != nil {
		return nil, profileLookupError(err, "update profile")
	}
	return FromModel(user), nil
}

func profileLookupError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
