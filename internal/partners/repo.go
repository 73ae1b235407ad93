package partners

import (
	"context"
	"time"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists delivery partner profiles.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a partner repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, partner *models.DeliveryPartner) (*models.DeliveryPartner, error) {
	if err := r.db.WithContext(ctx).Create(partner).Error; err != nil {
		return nil, err
	}
	return partner, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

// List returns partners in insertion order, optionally only available ones.
func (r *Repository) List(ctx context.Context, availableOnly bool) ([]models.DeliveryPartner, error) {
	tx := r.db.WithContext(ctx).Model(&models.DeliveryPartner{})
	if availableOnly {
		tx = tx.Where("is_available = ?", true)
	}
	var rows []models.DeliveryPartner
	err := tx.Order("created_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// Update applies column updates and returns gorm.ErrRecordNotFound when no
// row matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.DeliveryPartner, error) {
	values := map[string]any{"updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.DeliveryPartner{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteIdle removes the partner only while it holds no active orders.
func (r *Repository) DeleteIdle(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM delivery_partners WHERE id = ? AND NOT EXISTS (
			SELECT 1 FROM orders o WHERE o.delivery_partner_id = ? AND o.status IN ?
		)`,
		id, id, enums.ActiveOrderStatuses(),
	)
	return res.RowsAffected, res.Error
}

func (r *Repository) CountActiveOrders(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_partner_id = ? AND status IN ?", id, enums.ActiveOrderStatuses()).
		Count(&count).Error
	return count, err
}
