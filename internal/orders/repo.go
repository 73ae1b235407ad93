package orders

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/freshcart/grocery-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListQuery scopes an order listing. Nil scope fields are not filtered.
type ListQuery struct {
	CustomerID *uuid.UUID
	PartnerID  *uuid.UUID
	Status     *enums.OrderStatus
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC").Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns newest orders first, one row past the limit.
func (r *repository) List(ctx context.Context, q ListQuery) ([]models.Order, error) {
	tx := r.db.WithContext(ctx).Model(&models.Order{})
	if q.CustomerID != nil {
		tx = tx.Where("customer_id = ?", *q.CustomerID)
	}
	if q.PartnerID != nil {
		tx = tx.Where("delivery_partner_id = ?", *q.PartnerID)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.Cursor != nil {
		tx = tx.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.Order
	err := tx.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// AssignPartner sets the partner only while the order still has the expected
// status and assignment, and the partner is still available.
func (r *repository) AssignPartner(ctx context.Context, id uuid.UUID, status enums.OrderStatus, previous *uuid.UUID, partnerID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, status).
		Where("EXISTS (SELECT 1 FROM delivery_partners dp WHERE dp.id = ? AND dp.is_available = ?)", partnerID, true)
	if previous == nil {
		tx = tx.Where("delivery_partner_id IS NULL")
	} else {
		tx = tx.Where("delivery_partner_id = ?", *previous)
	}
	res := tx.Updates(map[string]any{"delivery_partner_id": partnerID, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// UpdatePayment writes only while both the payment status and method still
// match what the caller read.
func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, fromStatus enums.PaymentStatus, fromMethod enums.PaymentMethod, updates map[string]any) (int64, error) {
	values := map[string]any{"updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND payment_method = ?", id, fromStatus, fromMethod).
		Updates(values)
	return res.RowsAffected, res.Error
}

func (r *repository) CountActiveForPartner(ctx context.Context, partnerID uuid.UUID, excludeOrderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_partner_id = ? AND id <> ? AND status IN ?", partnerID, excludeOrderID, enums.ActiveOrderStatuses()).
		Count(&count).Error
	return count, err
}

// Restock returns each item's quantity to its product, touching rows in the
// same product id order checkout reserves them in.
func (r *repository) Restock(ctx context.Context, items []models.OrderItem) error {
	now := time.Now().UTC()
	for _, item := range byProductID(items) {
		if err := r.db.WithContext(ctx).Exec(
			`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`,
			item.Quantity, now, item.ProductID,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func byProductID(items []models.OrderItem) []models.OrderItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b models.OrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}

func (r *repository) AppendEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	var rows []models.OrderStatusEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) FindPartnerByUserID(ctx context.Context, userID uuid.UUID) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) FindUserRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "role").First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}
