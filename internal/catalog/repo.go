package catalog

import (
	"context"
	"time"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wraps product persistence.
type Repository struct {
	db *gorm.DB
}

// ListQuery narrows the product listing.
type ListQuery struct {
	Category        string
	IncludeInactive bool
	Search          string
	Limit           int
	Cursor          *pagination.Cursor
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads a product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActive loads a product only when it is visible in the catalog.
func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update writes the provided columns and reloads the row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error) {
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.FindByID(ctx, id)
}

// AdjustStock applies delta to stock without letting it fall below zero.
// It reports false when the row is missing or the result would be negative.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ? AND stock + ? >= 0`,
		delta, time.Now().UTC(), id, delta,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns products in (created_at, id) order, fetching one extra row
// so the caller can tell whether another page exists.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Product, error) {
	tx := r.db.WithContext(ctx).Model(&models.Product{})
	if !q.IncludeInactive {
		tx = tx.Where("is_active = ?", true)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+q.Search+"%")
	}
	if q.Cursor != nil {
		tx = tx.Where("(created_at > ?) OR (created_at = ? AND id > ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.Product
	err := tx.Order("created_at ASC").Order("id ASC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error
	return rows, err
}

// ListCategories returns the distinct categories of active products.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ? AND category <> ''", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}
