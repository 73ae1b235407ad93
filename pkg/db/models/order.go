package models

import (
	"time"

	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is the immutable snapshot produced by checkout. Only the status,
// assignment, delivery timing, and payment columns change afterwards.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID            uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	DeliveryPartnerID     *uuid.UUID          `gorm:"column:delivery_partner_id;type:uuid;index"`
	Status                enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending';index"`
	TotalAmount           decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DeliveryAddress       string              `gorm:"column:delivery_address;not null"`
	DeliveryInstructions  *string             `gorm:"column:delivery_instructions"`
	EstimatedDeliveryTime *time.Time          `gorm:"column:estimated_delivery_time"`
	ActualDeliveryTime    *time.Time          `gorm:"column:actual_delivery_time"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentCollectedAt    *time.Time          `gorm:"column:payment_collected_at"`
	PaymentCollectedBy    *uuid.UUID          `gorm:"column:payment_collected_by;type:uuid"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
