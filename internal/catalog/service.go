package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productNotFound = "product not found"

// Service exposes catalog browsing and owner inventory management.
type Service interface {
	List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	Categories(ctx context.Context) ([]string, error)

	Create(ctx context.Context, actor identity.Actor, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, actor identity.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, actor identity.Actor, productID uuid.UUID) error
	AdjustStock(ctx context.Context, actor identity.Actor, productID uuid.UUID, delta int) (*ProductDTO, error)

	ListAll(ctx context.Context, actor identity.Actor, input ListInput) (*pagination.Page[ProductDTO], error)
	GetAny(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*ProductDTO, error)
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error)
	List(ctx context.Context, q ListQuery) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
}

type service struct {
	repo productRepository
}

// NewService constructs a catalog service instance.
func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	input.IncludeInactive = false
	return s.list(ctx, input)
}

func (s *service) ListAll(ctx context.Context, actor identity.Actor, input ListInput) (*pagination.Page[ProductDTO], error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, input)
}

func (s *service) list(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListQuery{
		Category:        strings.TrimSpace(input.Category),
		Search:          strings.ToLower(strings.TrimSpace(input.Search)),
		IncludeInactive: input.IncludeInactive,
		Limit:           input.Limit,
		Cursor:          cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	page := pagination.Build(items, input.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindActive(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(product), nil
}

func (s *service) GetAny(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*ProductDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(product), nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func (s *service) Create(ctx context.Context, actor identity.Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product, err := s.repo.Create(ctx, &models.Product{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price.Round(2),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Category:    strings.TrimSpace(input.Category),
		Stock:       input.Stock,
		IsActive:    active,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, actor identity.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *input.Stock
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	product, err := s.repo.Update(ctx, productID, updates)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(product), nil
}

// Deactivate hides the product from browsing. Rows are kept so order history
// keeps resolving.
func (s *service) Deactivate(ctx context.Context, actor identity.Actor, productID uuid.UUID) error {
	if err := requireOwner(actor); err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, productID, map[string]any{"is_active": false}); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, actor identity.Actor, productID uuid.UUID, delta int) (*ProductDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if delta == 0 {
		return s.GetAny(ctx, actor, productID)
	}
	ok, err := s.repo.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	if !ok {
		product, lookupErr := s.repo.FindByID(ctx, productID)
		if lookupErr != nil {
			return nil, mapLookupError(lookupErr)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot go below zero").
			WithDetails(map[string]any{"stock": product.Stock, "delta": delta})
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(product), nil
}

func requireOwner(actor identity.Actor) error {
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Is(enums.UserRoleOwner) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "owner role required")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, productNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}
