package orders

import (
	"time"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemDTO is a frozen order line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the full order view.
type OrderDTO struct {
	ID                    uuid.UUID           `json:"id"`
	CustomerID            uuid.UUID           `json:"customer_id"`
	DeliveryPartnerID     *uuid.UUID          `json:"delivery_partner_id,omitempty"`
	Status                enums.OrderStatus   `json:"status"`
	NextStatuses          []enums.OrderStatus `json:"next_statuses"`
	TotalAmount           decimal.Decimal     `json:"total_amount"`
	DeliveryAddress       string              `json:"delivery_address"`
	DeliveryInstructions  *string             `json:"delivery_instructions,omitempty"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time          `json:"actual_delivery_time,omitempty"`
	PaymentMethod         enums.PaymentMethod `json:"payment_method"`
	PaymentStatus         enums.PaymentStatus `json:"payment_status"`
	PaymentCollectedAt    *time.Time          `json:"payment_collected_at,omitempty"`
	PaymentCollectedBy    *uuid.UUID          `json:"payment_collected_by,omitempty"`
	Items                 []OrderItemDTO      `json:"items,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// StatusEventDTO is one entry of an order's status history.
type StatusEventDTO struct {
	FromStatus  *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus    enums.OrderStatus  `json:"to_status"`
	ActorUserID uuid.UUID          `json:"actor_user_id"`
	ActorRole   enums.UserRole     `json:"actor_role"`
	Note        *string            `json:"note,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// AdvanceStatusInput is the body of a status change request.
type AdvanceStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
	Note   *string           `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AssignPartnerInput names the partner to assign.
type AssignPartnerInput struct {
	PartnerID uuid.UUID `json:"partner_id" validate:"required"`
}

// RecordPaymentInput updates payment collection. Method is optional and keeps
// the stored value when empty.
type RecordPaymentInput struct {
	Method      enums.PaymentMethod `json:"method,omitempty"`
	Status      enums.PaymentStatus `json:"status" validate:"required"`
	CollectedBy *uuid.UUID          `json:"collected_by,omitempty"`
}

// ListFilter narrows a role-scoped order listing.
type ListFilter struct {
	Status *enums.OrderStatus
	Limit  int
	Cursor string
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                    o.ID,
		CustomerID:            o.CustomerID,
		DeliveryPartnerID:     o.DeliveryPartnerID,
		Status:                o.Status,
		NextStatuses:          NextStatuses(o.Status),
		TotalAmount:           o.TotalAmount,
		DeliveryAddress:       o.DeliveryAddress,
		DeliveryInstructions:  o.DeliveryInstructions,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		PaymentMethod:         o.PaymentMethod,
		PaymentStatus:         o.PaymentStatus,
		PaymentCollectedAt:    o.PaymentCollectedAt,
		PaymentCollectedBy:    o.PaymentCollectedBy,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	if dto.NextStatuses == nil {
		dto.NextStatuses = []enums.OrderStatus{}
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: item.LineTotal(),
		})
	}
	return dto
}

func eventFromModel(e models.OrderStatusEvent) StatusEventDTO {
	return StatusEventDTO{
		FromStatus:  e.FromStatus,
		ToStatus:    e.ToStatus,
		ActorUserID: e.ActorUserID,
		ActorRole:   e.ActorRole,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}
