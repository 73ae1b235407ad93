// Package reservation takes stock for checkout lines with conditional updates
// so concurrent checkouts can never push a product below zero.
package reservation

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReasonInsufficientStock = "insufficient stock"
	ReasonUnavailable       = "product unavailable"
)

// StockRequest asks for Qty units of a product.
type StockRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// StockResult reports the outcome for one request. Available is the stock
// observed after a failed decrement.
type StockResult struct {
	ProductID uuid.UUID
	Qty       int
	Reserved  bool
	Available int
	Reason    string
}

// ReserveStock decrements stock for every request on the supplied transaction.
// A failed line does not stop the remaining ones; callers roll back the
// transaction when any result is not Reserved. Rows are updated in product id
// order; results[i] always answers requests[i].
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockRequest) ([]StockResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := time.Now().UTC()
	results := make([]StockResult, len(requests))
	for _, idx := range LockOrder(requests) {
		req := requests[idx]
		if req.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		res := tx.WithContext(ctx).Exec(
			`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND is_active = ? AND stock >= ?`,
			req.Qty, now, req.ProductID, true, req.Qty,
		)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
		}
		result := StockResult{ProductID: req.ProductID, Qty: req.Qty, Reserved: res.RowsAffected == 1}
		if !result.Reserved {
			available, reason, err := currentStock(ctx, tx, req.ProductID)
			if err != nil {
				return nil, err
			}
			result.Available = available
			result.Reason = reason
		}
		results[idx] = result
	}
	return results, nil
}

// LockOrder returns request indexes sorted by product id. Two checkouts that
// touch the same products then lock rows in the same sequence.
func LockOrder(requests []StockRequest) []int {
	order := make([]int, len(requests))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return bytes.Compare(requests[a].ProductID[:], requests[b].ProductID[:])
	})
	return order
}

func currentStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, string, error) {
	var row struct {
		Stock    int
		IsActive bool
	}
	err := tx.WithContext(ctx).
		Table("products").
		Select("stock, is_active").
		Where("id = ?", productID).
		Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, ReasonUnavailable, nil
	case err != nil:
		return 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	case !row.IsActive:
		return 0, ReasonUnavailable, nil
	default:
		return row.Stock, ReasonInsufficientStock, nil
	}
}
