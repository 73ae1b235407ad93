package models

import (
	"time"

	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatusEvent is the append-only audit row written with every status change.
type OrderStatusEvent struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus  *enums.OrderStatus `gorm:"column:from_status;type:text"`
	ToStatus    enums.OrderStatus  `gorm:"column:to_status;type:text;not null"`
	ActorUserID uuid.UUID          `gorm:"column:actor_user_id;type:uuid;not null"`
	ActorRole   enums.UserRole     `gorm:"column:actor_role;type:text;not null"`
	Note        *string            `gorm:"column:note"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (e *OrderStatusEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
