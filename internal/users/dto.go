package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID             uuid.UUID      `json:"id"`
	Email          string         `json:"email"`
	Role           enums.UserRole `json:"role"`
	FullName       *string        `json:"full_name,omitempty"`
	Phone          *string        `json:"phone,omitempty"`
	Address        *string        `json:"address,omitempty"`
	EmailConfirmed bool           `json:"email_confirmed"`
	LastLoginAt    *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email          string
	PasswordHash   string
	Role           enums.UserRole
	FullName       *string
	Phone          *string
	Address        *string
	EmailConfirmed bool
}

// UpdateProfileDTO carries optional profile edits.
type UpdateProfileDTO struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		FullName:       u.FullName,
		Phone:          u.Phone,
		Address:        u.Address,
		EmailConfirmed: u.EmailConfirmed,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:          c.Email,
		PasswordHash:   c.PasswordHash,
		Role:           c.Role,
		FullName:       c.FullName,
		Phone:          c.Phone,
		Address:        c.Address,
		EmailConfirmed: c.EmailConfirmed,
	}
}

func (u UpdateProfileDTO) updates() map[string]any {
	updates := map[string]any{}
	if u.FullName != nil {
		updates["full_name"] = *u.FullName
	}
	if u.Phone != nil {
		updates["phone"] = *u.Phone
	}
	if u.Address != nil {
		updates["address"] = *u.Address
	}
	return updates
}
