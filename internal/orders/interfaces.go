package orders

import (
	"context"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their audit trail.
// Every mutating method is a compare-and-set and reports the rows it changed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, q ListQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error)
	AssignPartner(ctx context.Context, id uuid.UUID, status enums.OrderStatus, previous *uuid.UUID, partnerID uuid.UUID) (int64, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, fromStatus enums.PaymentStatus, fromMethod enums.PaymentMethod, updates map[string]any) (int64, error)
	CountActiveForPartner(ctx context.Context, partnerID uuid.UUID, excludeOrderID uuid.UUID) (int64, error)
	Restock(ctx context.Context, items []models.OrderItem) error
	AppendEvent(ctx context.Context, event *models.OrderStatusEvent) error
	ListEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.DeliveryPartner, error)
	FindPartnerByUserID(ctx context.Context, userID uuid.UUID) (*models.DeliveryPartner, error)
	FindUserRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
}
