package cart

import (
	"context"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	EnsureForCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	AddQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (int64, error)
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (int64, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type productLookup interface {
	FindActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
