package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
)

// StockValidationInput describes one cart line checked against the catalog.
type StockValidationInput struct {
	ProductID   uuid.UUID
	ProductName string
	Active      bool
	Available   int
	Quantity    int
}

// StockViolationDetail exposes the data returned to callers when a line cannot be filled.
type StockViolationDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Requested    int       `json:"requested"`
	Available    int       `json:"available"`
	Discontinued bool      `json:"discontinued,omitempty"`
}

// ValidateStock ensures every line references an active product with enough stock.
// Inactive products report zero availability.
func ValidateStock(items []StockValidationInput) error {
	var violations []StockViolationDetail
	for _, item := range items {
		if item.Active && item.Available >= item.Quantity {
			continue
		}
		available := item.Available
		if !item.Active {
			available = 0
		}
		violations = append(violations, StockViolationDetail{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Requested:    item.Quantity,
			Available:    available,
			Discontinued: !item.Active,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return InsufficientStock(violations...)
}

// InsufficientStock builds the error returned when one or more lines cannot be filled.
// The first violation's product is surfaced as product_id for simple clients.
func InsufficientStock(violations ...StockViolationDetail) error {
	details := map[string]any{"violations": violations}
	if len(violations) > 0 {
		details["product_id"] = violations[0].ProductID
	}
	return pkgerrors.New(
		pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %d item(s)", len(violations)),
	).WithDetails(details)
}
