package models

import (
	"time"

	"github.com/freshcart/grocery-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryPartner is the fulfillment profile of a delivery_partner user.
type DeliveryPartner struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:delivery_partners_user_id_key"`
	Name            string          `gorm:"column:name;not null"`
	Phone           string          `gorm:"column:phone;not null"`
	VehicleNumber   string          `gorm:"column:vehicle_number;not null"`
	IsAvailable     bool            `gorm:"column:is_available;not null;default:false"`
	CurrentLocation *types.GeoPoint `gorm:"column:current_location;type:text"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *DeliveryPartner) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
