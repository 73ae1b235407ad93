package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
	"github.com/freshcart/grocery-backend/pkg/metrics"
	"github.com/freshcart/grocery-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderNotAccessible = "order not accessible"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives orders through their lifecycle after checkout.
type Service interface {
	AdvanceStatus(ctx context.Context, actor identity.Actor, orderID uuid.UUID, input AdvanceStatusInput) (*OrderDTO, error)
	Cancel(ctx context.Context, actor identity.Actor, orderID uuid.UUID, note *string) (*OrderDTO, error)
	AssignPartner(ctx context.Context, actor identity.Actor, orderID uuid.UUID, input AssignPartnerInput) (*OrderDTO, error)
	RecordPayment(ctx context.Context, actor identity.Actor, orderID uuid.UUID, input RecordPaymentInput) (*OrderDTO, error)
	Get(ctx context.Context, actor identity.Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor identity.Actor, filter ListFilter) (*pagination.Page[OrderDTO], error)
	History(ctx context.Context, actor identity.Actor, orderID uuid.UUID) ([]StatusEventDTO, error)
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Policy  config.PolicyConfig
	Metrics *metrics.OrderMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	policy  config.PolicyConfig
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		policy:  params.Policy,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) AdvanceStatus(ctx context.Context, actor identity.Actor, orderID uuid.UUID, input AdvanceStatusInput) (*OrderDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	target := input.Status

	var (
		from   enums.OrderStatus
		result *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		scope, err := s.scopeFor(ctx, repo, actor)
		if err != nil {
			return err
		}
		order, err := scope.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := CheckTransition(order.Status, target, actor.Role); err != nil {
			return err
		}
		from = order.Status

		now := s.now()
		extra := map[string]any{}
		switch target {
		case enums.OrderStatusOutForDelivery:
			if order.EstimatedDeliveryTime == nil {
				extra["estimated_delivery_time"] = now.Add(s.policy.DeliveryETA)
			}
		case enums.OrderStatusDelivered:
			extra["actual_delivery_time"] = now
		}

		affected, err := repo.UpdateStatus(ctx, order.ID, from, target, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		if target == enums.OrderStatusCancelled && s.policy.RestockOnCancel {
			if err := repo.Restock(ctx, order.Items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock cancelled order")
			}
		}

		if err := repo.AppendEvent(ctx, &models.OrderStatusEvent{
			OrderID:     order.ID,
			FromStatus:  &from,
			ToStatus:    target,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
			Note:        input.Note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status event")
		}

		result, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(from.String(), target.String(), actor.Role.String())
	s.info(ctx, actor, orderID, "order.status_changed", map[string]any{"from": from, "to": target})
	return FromModel(result), nil
}

// Cancel is AdvanceStatus to cancelled.
func (s *service) Cancel(ctx context.Context, actor identity.Actor, orderID uuid.UUID, note *string) (*OrderDTO, error) {
	return s.AdvanceStatus(ctx, actor, orderID, AdvanceStatusInput{Status: enums.OrderStatusCancelled, Note: note})
}

func (s *service) AssignPartner(ctx context.Context, actor identity.Actor, orderID uuid.UUID, input AssignPartnerInput) (*OrderDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return lookupError(err, "order not found", "load order")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "partner can only be assigned before preparation starts").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		partner, err := repo.FindPartnerByID(ctx, input.PartnerID)
		if err != nil {
			return lookupError(err, "delivery partner not found", "load delivery partner")
		}
		if !partner.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery partner is unavailable")
		}
		if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == partner.ID {
			result = order
			return nil
		}

		if s.policy.ExclusivePartnerAssignment {
			active, err := repo.CountActiveForPartner(ctx, partner.ID, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count partner orders")
			}
			if active > 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "delivery partner already has an active order")
			}
		}

		affected, err := repo.AssignPartner(ctx, order.ID, order.Status, order.DeliveryPartnerID, partner.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign partner")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order or partner changed concurrently")
		}

		result, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncAssignment(metrics.OutcomeFailure)
		return nil, err
	}

	s.metrics.IncAssignment(metrics.OutcomeSuccess)
	s.info(ctx, actor, orderID, "order.partner_assigned", map[string]any{"partner_id": input.PartnerID.String()})
	return FromModel(result), nil
}

func (s *service) RecordPayment(ctx context.Context, actor identity.Actor, orderID uuid.UUID, input RecordPaymentInput) (*OrderDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if input.Method != "" && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		scope, err := s.scopeFor(ctx, repo, actor)
		if err != nil {
			return err
		}
		order, err := scope.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment already completed").
				WithDetails(map[string]any{"from": order.PaymentStatus.String(), "to": input.Status.String()})
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is cancelled").
				WithDetails(map[string]any{"from": order.PaymentStatus.String(), "to": input.Status.String()})
		}

		method := order.PaymentMethod
		if input.Method != "" {
			method = input.Method
		}
		updates := map[string]any{"payment_status": input.Status, "payment_method": method}
		if input.Status == enums.PaymentStatusCompleted {
			if method == enums.PaymentMethodPending {
				return pkgerrors.New(pkgerrors.CodeValidation, "payment method is required to complete payment")
			}
			collectedBy := actor.UserID
			if input.CollectedBy != nil && *input.CollectedBy != uuid.Nil && *input.CollectedBy != actor.UserID {
				collectedBy = *input.CollectedBy
				if err := checkCollector(ctx, repo, collectedBy); err != nil {
					return err
				}
			}
			updates["payment_collected_at"] = s.now()
			updates["payment_collected_by"] = collectedBy
		}

		affected, err := repo.UpdatePayment(ctx, order.ID, order.PaymentStatus, order.PaymentMethod, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment changed concurrently")
		}

		result, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayment(result.PaymentMethod.String(), result.PaymentStatus.String())
	s.info(ctx, actor, orderID, "order.payment_recorded", map[string]any{
		"payment_method": result.PaymentMethod,
		"payment_status": result.PaymentStatus,
	})
	return FromModel(result), nil
}

func (s *service) Get(ctx context.Context, actor identity.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if !actor.Role.IsValid() {
		return nil, unauthenticated()
	}
	scope, err := s.scopeFor(ctx, s.repo, actor)
	if err != nil {
		return nil, err
	}
	order, err := scope.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) History(ctx context.Context, actor identity.Actor, orderID uuid.UUID) ([]StatusEventDTO, error) {
	if !actor.Role.IsValid() {
		return nil, unauthenticated()
	}
	scope, err := s.scopeFor(ctx, s.repo, actor)
	if err != nil {
		return nil, err
	}
	if _, err := scope.load(ctx, s.repo, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status events")
	}
	events := make([]StatusEventDTO, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventFromModel(row))
	}
	return events, nil
}

func (s *service) List(ctx context.Context, actor identity.Actor, filter ListFilter) (*pagination.Page[OrderDTO], error) {
	if !actor.Role.IsValid() {
		return nil, unauthenticated()
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	q := ListQuery{Status: filter.Status, Limit: filter.Limit, Cursor: cursor}
	switch actor.Role {
	case enums.UserRoleCustomer:
		id := actor.UserID
		q.CustomerID = &id
	case enums.UserRoleDeliveryPartner:
		partner, err := s.repo.FindPartnerByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &pagination.Page[OrderDTO]{Items: []OrderDTO{}}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery partner")
		}
		q.PartnerID = &partner.ID
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	page := pagination.Build(items, filter.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// orderScope captures which orders an actor may see.
type orderScope struct {
	actor     identity.Actor
	partnerID uuid.UUID
}

func (s *service) scopeFor(ctx context.Context, repo Repository, actor identity.Actor) (orderScope, error) {
	scope := orderScope{actor: actor}
	if actor.Role != enums.UserRoleDeliveryPartner {
		return scope, nil
	}
	partner, err := repo.FindPartnerByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scope, forbidden()
		}
		return scope, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery partner")
	}
	scope.partnerID = partner.ID
	return scope, nil
}

// load fetches the order if the actor may see it. Only owners learn whether a
// missing order exists; everyone else gets the same Forbidden.
func (sc orderScope) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if sc.actor.Is(enums.UserRoleOwner) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, forbidden()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	switch sc.actor.Role {
	case enums.UserRoleOwner:
		return order, nil
	case enums.UserRoleCustomer:
		if order.CustomerID == sc.actor.UserID {
			return order, nil
		}
	case enums.UserRoleDeliveryPartner:
		if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == sc.partnerID {
			return order, nil
		}
	}
	return nil, forbidden()
}

func (s *service) info(ctx context.Context, actor identity.Actor, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithActorRole(ctx, actor.Role.String())
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// requireStaff admits owners and delivery partners.
func requireStaff(actor identity.Actor) error {
	switch actor.Role {
	case enums.UserRoleOwner, enums.UserRoleDeliveryPartner:
		return nil
	case enums.UserRoleCustomer:
		return forbidden()
	default:
		return unauthenticated()
	}
}

func requireOwner(actor identity.Actor) error {
	if !actor.Role.IsValid() {
		return unauthenticated()
	}
	if !actor.Is(enums.UserRoleOwner) {
		return forbidden()
	}
	return nil
}

// checkCollector accepts owners and delivery partners as payment collectors.
func checkCollector(ctx context.Context, repo Repository, userID uuid.UUID) error {
	role, err := repo.FindUserRole(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "collected_by does not match a user").
				WithDetails(map[string]any{"collected_by": userID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment collector")
	}
	if role != enums.UserRoleOwner && role != enums.UserRoleDeliveryPartner {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment must be collected by staff").
			WithDetails(map[string]any{"collected_by": userID.String()})
	}
	return nil
}

func lookupError(err error, notFound, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func forbidden() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, orderNotAccessible)
}

func unauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}
