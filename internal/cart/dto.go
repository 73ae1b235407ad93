package cart

import (
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineDTO is a cart line priced at the current catalog price.
type LineDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
	Stock     int             `json:"stock"`
}

// CartDTO is the read model returned to customers.
type CartDTO struct {
	ID        *uuid.UUID      `json:"id,omitempty"`
	Items     []LineDTO       `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// AddItemInput is the body of an add-to-cart request.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityInput sets a line's quantity; zero removes it.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

func emptyCart() *CartDTO {
	return &CartDTO{Items: []LineDTO{}, Subtotal: decimal.Zero}
}

func toCartDTO(cart *models.Cart, items []models.CartItem) *CartDTO {
	view := emptyCart()
	if cart != nil {
		id := cart.ID
		view.ID = &id
	}
	for _, item := range items {
		line := LineDTO{ProductID: item.ProductID, Quantity: item.Quantity}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.ImageURL = item.Product.ImageURL
			line.Price = item.Product.Price
			line.Available = item.Product.IsActive && item.Product.Stock >= item.Quantity
			line.Stock = item.Product.Stock
		}
		line.LineTotal = line.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.ItemCount += item.Quantity
		view.Items = append(view.Items, line)
	}
	return view
}
