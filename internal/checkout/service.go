package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freshcart/grocery-backend/internal/cart"
	"github.com/freshcart/grocery-backend/internal/checkout/reservation"
	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/internal/orders"
	pkgcheckout "github.com/freshcart/grocery-backend/pkg/checkout"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
	"github.com/freshcart/grocery-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockRequest) ([]reservation.StockResult, error)
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockRequest) ([]reservation.StockResult, error) {
	return reservation.ReserveStock(ctx, tx, requests)
}

// Service turns a customer's cart into an order.
type Service interface {
	Checkout(ctx context.Context, actor identity.Actor, req Request) (*orders.OrderDTO, error)
}

// Request carries the delivery data captured at checkout.
type Request struct {
	DeliveryAddress      string              `json:"delivery_address" validate:"required,max=500"`
	DeliveryInstructions *string             `json:"delivery_instructions,omitempty" validate:"omitempty,max=500"`
	PaymentMethod        enums.PaymentMethod `json:"payment_method,omitempty"`
}

// ServiceParams bundles checkout dependencies. Reserver defaults to the
// conditional-update engine.
type ServiceParams struct {
	Tx       txRunner
	Carts    cart.CartRepository
	Orders   orders.Repository
	Reserver stockReserver
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	carts    cart.CartRepository
	orders   orders.Repository
	reserver stockReserver
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	reserver := params.Reserver
	if reserver == nil {
		reserver = reservationEngine{}
	}
	return &service{
		tx:       params.Tx,
		carts:    params.Carts,
		orders:   params.Orders,
		reserver: reserver,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Checkout(ctx context.Context, actor identity.Actor, req Request) (*orders.OrderDTO, error) {
	started := time.Now()
	result, err := s.checkout(ctx, actor, req)
	if err != nil {
		code := ""
		if typed := pkgerrors.As(err); typed != nil {
			code = string(typed.Code())
		}
		s.metrics.ObserveCheckout(metrics.OutcomeFailure, code, time.Since(started))
		return nil, err
	}
	s.metrics.ObserveCheckout(metrics.OutcomeSuccess, "", time.Since(started))
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, result.ID.String())
		logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
		s.logg.Info(s.logg.WithField(logCtx, "total_amount", result.TotalAmount.StringFixed(2)), "checkout.completed")
	}
	return orders.FromModel(result), nil
}

func (s *service) checkout(ctx context.Context, actor identity.Actor, req Request) (*models.Order, error) {
	if !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Is(enums.UserRoleCustomer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can check out")
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	method := req.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodPending
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		record, err := carts.FindByCustomer(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return emptyCart()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		lines, err := carts.ListItems(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
		}
		if len(lines) == 0 {
			return emptyCart()
		}

		if err := pkgcheckout.ValidateStock(stockInputs(lines)); err != nil {
			return err
		}

		results, err := s.reserver.Reserve(ctx, tx, reservationRequests(lines))
		if err != nil {
			return err
		}
		if violations := rejected(lines, results); len(violations) > 0 {
			return pkgcheckout.InsufficientStock(violations...)
		}

		order := buildOrder(actor.UserID, address, req.DeliveryInstructions, method, lines)
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		cleared, err := carts.ClearItems(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if cleared != int64(len(lines)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
		}

		if err := ordersRepo.AppendEvent(ctx, &models.OrderStatusEvent{
			OrderID:     order.ID,
			ToStatus:    enums.OrderStatusPending,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status event")
		}

		created, err = ordersRepo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func emptyCart() error {
	return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
}

func stockInputs(lines []models.CartItem) []pkgcheckout.StockValidationInput {
	inputs := make([]pkgcheckout.StockValidationInput, 0, len(lines))
	for _, line := range lines {
		input := pkgcheckout.StockValidationInput{ProductID: line.ProductID, Quantity: line.Quantity}
		if line.Product != nil {
			input.ProductName = line.Product.Name
			input.Active = line.Product.IsActive
			input.Available = line.Product.Stock
		}
		inputs = append(inputs, input)
	}
	return inputs
}

func reservationRequests(lines []models.CartItem) []reservation.StockRequest {
	requests := make([]reservation.StockRequest, len(lines))
	for i, line := range lines {
		requests[i] = reservation.StockRequest{ProductID: line.ProductID, Qty: line.Quantity}
	}
	return requests
}

// rejected maps failed reservations back to cart lines. A row can pass
// validation and still lose the decrement to a concurrent checkout.
func rejected(lines []models.CartItem, results []reservation.StockResult) []pkgcheckout.StockViolationDetail {
	var violations []pkgcheckout.StockViolationDetail
	for i, res := range results {
		if res.Reserved {
			continue
		}
		detail := pkgcheckout.StockViolationDetail{
			ProductID:    res.ProductID,
			Requested:    res.Qty,
			Available:    res.Available,
			Discontinued: res.Reason == reservation.ReasonUnavailable,
		}
		if i < len(lines) && lines[i].Product != nil {
			detail.ProductName = lines[i].Product.Name
		}
		violations = append(violations, detail)
	}
	return violations
}

func buildOrder(customerID uuid.UUID, address string, instructions *string, method enums.PaymentMethod, lines []models.CartItem) *models.Order {
	order := &models.Order{
		CustomerID:           customerID,
		Status:               enums.OrderStatusPending,
		DeliveryAddress:      address,
		DeliveryInstructions: trimmed(instructions),
		PaymentMethod:        method,
		PaymentStatus:        enums.PaymentStatusPending,
		Items:                make([]models.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		item := models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		}
		order.TotalAmount = order.TotalAmount.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}
	return order
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
