package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the customer's staging cart.
type Service interface {
	AddItem(ctx context.Context, actor identity.Actor, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, actor identity.Actor, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*CartDTO, error)
	GetCart(ctx context.Context, actor identity.Actor) (*CartDTO, error)
	Clear(ctx context.Context, actor identity.Actor) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLookup
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func (s *service) AddItem(ctx context.Context, actor identity.Actor, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if _, err := s.products.FindActive(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.EnsureForCustomer(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure cart")
		}
		if err := repo.AddQuantity(ctx, cart.ID, productID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, actor)
}

func (s *service) UpdateQuantity(ctx context.Context, actor identity.Actor, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, actor, productID)
	}

	cart, err := s.findCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	affected, err := s.repo.SetQuantity(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.GetCart(ctx, actor)
}

// RemoveItem deletes the line. Removing an absent line is not an error.
func (s *service) RemoveItem(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*CartDTO, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	cart, err := s.findCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return emptyCart(), nil
	}
	if _, err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.GetCart(ctx, actor)
}

func (s *service) GetCart(ctx context.Context, actor identity.Actor) (*CartDTO, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	cart, err := s.findCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return emptyCart(), nil
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return toCartDTO(cart, items), nil
}

func (s *service) Clear(ctx context.Context, actor identity.Actor) error {
	if err := requireCustomer(actor); err != nil {
		return err
	}
	cart, err := s.findCart(ctx, actor.UserID)
	if err != nil || cart == nil {
		return err
	}
	if _, err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// findCart returns nil without error when the customer has no cart yet.
func (s *service) findCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func requireCustomer(actor identity.Actor) error {
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Is(enums.UserRoleCustomer) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "customer role required")
	}
	return nil
}
