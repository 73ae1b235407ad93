package partners

import (
	"time"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/types"
	"github.com/google/uuid"
)

// PartnerDTO is the public partner profile.
type PartnerDTO struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	Name            string        `json:"name"`
	Phone           string        `json:"phone"`
	VehicleNumber   string        `json:"vehicle_number"`
	IsAvailable     bool          `json:"is_available"`
	CurrentLocation *types.LatLng `json:"current_location,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// RegisterInput creates a partner profile. UserID is honored for owners only;
// delivery partners always register themselves.
type RegisterInput struct {
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	Name          string     `json:"name" validate:"required,max=120"`
	Phone         string     `json:"phone" validate:"required,max=32"`
	VehicleNumber string     `json:"vehicle_number" validate:"required,max=32"`
	IsAvailable   bool       `json:"is_available"`
}

// UpdateInput carries owner edits. Nil fields are left untouched.
type UpdateInput struct {
	Name            *string       `json:"name,omitempty" validate:"omitempty,max=120"`
	Phone           *string       `json:"phone,omitempty" validate:"omitempty,max=32"`
	VehicleNumber   *string       `json:"vehicle_number,omitempty" validate:"omitempty,max=32"`
	CurrentLocation *types.LatLng `json:"current_location,omitempty"`
}

// AvailabilityInput toggles availability.
type AvailabilityInput struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

func FromModel(p *models.DeliveryPartner) *PartnerDTO {
	if p == nil {
		return nil
	}
	return &PartnerDTO{
		ID:              p.ID,
		UserID:          p.UserID,
		Name:            p.Name,
		Phone:           p.Phone,
		VehicleNumber:   p.VehicleNumber,
		CurrentLocation: types.LatLngFrom(p.CurrentLocation),
		IsAvailable:     p.IsAvailable,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromModels(rows []models.DeliveryPartner) []PartnerDTO {
	out := make([]PartnerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
