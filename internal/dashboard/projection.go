// Package dashboard computes the per-role summary counters shown on each
// dashboard. Everything is read on demand with count queries.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCounts maps every order status to its count. Statuses with no
// orders are present with zero.
type StatusCounts map[enums.OrderStatus]int64

// Active sums the non-terminal statuses.
func (c StatusCounts) Active() int64 {
	var total int64
	for _, status := range enums.ActiveOrderStatuses() {
		total += c[status]
	}
	return total
}

type OwnerSummary struct {
	Orders            StatusCounts `json:"orders"`
	ActiveOrders      int64        `json:"active_orders"`
	UnassignedOrders  int64        `json:"unassigned_orders"`
	PendingPayments   int64        `json:"pending_payments"`
	ActiveProducts    int64        `json:"active_products"`
	LowStockProducts  int64        `json:"low_stock_products"`
	AvailablePartners int64        `json:"available_partners"`
	Customers         int64        `json:"customers"`
}

type CustomerSummary struct {
	Orders        StatusCounts `json:"orders"`
	ActiveOrders  int64        `json:"active_orders"`
	CartItemCount int64        `json:"cart_item_count"`
}

type PartnerSummary struct {
	Registered         bool         `json:"registered"`
	IsAvailable        bool         `json:"is_available"`
	Orders             StatusCounts `json:"orders"`
	ActiveOrders       int64        `json:"active_orders"`
	PendingCollections int64        `json:"pending_collections"`
}

// Projection produces dashboard summaries.
type Projection interface {
	OwnerSummary(ctx context.Context) (*OwnerSummary, error)
	CustomerSummary(ctx context.Context, customerID uuid.UUID) (*CustomerSummary, error)
	PartnerSummary(ctx context.Context, partnerUserID uuid.UUID) (*PartnerSummary, error)
}

type countProjection struct {
	db                *gorm.DB
	lowStockThreshold int
}

// NewProjection builds a count-query projection. Products at or below
// lowStockThreshold count as low stock.
func NewProjection(db *gorm.DB, lowStockThreshold int) (Projection, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &countProjection{db: db, lowStockThreshold: lowStockThreshold}, nil
}

func (p *countProjection) OwnerSummary(ctx context.Context) (*OwnerSummary, error) {
	orders, err := p.statusCounts(ctx, p.db.Model(&models.Order{}))
	if err != nil {
		return nil, err
	}
	summary := &OwnerSummary{Orders: orders, ActiveOrders: orders.Active()}

	counts := []struct {
		target *int64
		query  *gorm.DB
	}{
		{&summary.UnassignedOrders, p.db.Model(&models.Order{}).
			Where("delivery_partner_id IS NULL AND status IN ?", enums.ActiveOrderStatuses())},
		{&summary.PendingPayments, p.db.Model(&models.Order{}).
			Where("payment_status <> ? AND status <> ?", enums.PaymentStatusCompleted, enums.OrderStatusCancelled)},
		{&summary.ActiveProducts, p.db.Model(&models.Product{}).Where("is_active = ?", true)},
		{&summary.LowStockProducts, p.db.Model(&models.Product{}).
			Where("is_active = ? AND stock <= ?", true, p.lowStockThreshold)},
		{&summary.AvailablePartners, p.db.Model(&models.DeliveryPartner{}).Where("is_available = ?", true)},
		{&summary.Customers, p.db.Model(&models.User{}).Where("role = ?", enums.UserRoleCustomer)},
	}
	for _, c := range counts {
		if err := c.query.WithContext(ctx).Count(c.target).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dashboard rows")
		}
	}
	return summary, nil
}

func (p *countProjection) CustomerSummary(ctx context.Context, customerID uuid.UUID) (*CustomerSummary, error) {
	orders, err := p.statusCounts(ctx, p.db.Model(&models.Order{}).Where("customer_id = ?", customerID))
	if err != nil {
		return nil, err
	}
	summary := &CustomerSummary{Orders: orders, ActiveOrders: orders.Active()}

	err = p.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.customer_id = ?", customerID).
		Select("COALESCE(SUM(cart_items.quantity), 0)").
		Scan(&summary.CartItemCount).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart items")
	}
	return summary, nil
}

func (p *countProjection) PartnerSummary(ctx context.Context, partnerUserID uuid.UUID) (*PartnerSummary, error) {
	var partner models.DeliveryPartner
	err := p.db.WithContext(ctx).Where("user_id = ?", partnerUserID).First(&partner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &PartnerSummary{Orders: emptyCounts()}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}

	orders, err := p.statusCounts(ctx, p.db.Model(&models.Order{}).Where("delivery_partner_id = ?", partner.ID))
	if err != nil {
		return nil, err
	}
	summary := &PartnerSummary{
		Registered:   true,
		IsAvailable:  partner.IsAvailable,
		Orders:       orders,
		ActiveOrders: orders.Active(),
	}
	err = p.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_partner_id = ? AND status = ? AND payment_status <> ?",
			partner.ID, enums.OrderStatusDelivered, enums.PaymentStatusCompleted).
		Count(&summary.PendingCollections).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending collections")
	}
	return summary, nil
}

func (p *countProjection) statusCounts(ctx context.Context, scope *gorm.DB) (StatusCounts, error) {
	var rows []struct {
		Status enums.OrderStatus
		Total  int64
	}
	err := scope.WithContext(ctx).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders by status")
	}
	counts := emptyCounts()
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func emptyCounts() StatusCounts {
	counts := StatusCounts{}
	for _, status := range enums.OrderStatuses() {
		counts[status] = 0
	}
	return counts
}
