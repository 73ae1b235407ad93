package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db/dbtest"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      Service
	db       *gorm.DB
	tx       txRunner
	policy   config.PolicyConfig
	owner    identity.Actor
	customer identity.Actor
	rider    identity.Actor
	partner  *models.DeliveryPartner
}

func newFixture(t *testing.T, policy config.PolicyConfig) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	if policy.DeliveryETA == 0 {
		policy.DeliveryETA = 45 * time.Minute
	}
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     client,
		Policy: policy,
		Now:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	f := &fixture{
		svc:      svc,
		db:       conn,
		tx:       client,
		policy:   policy,
		owner:    identity.Actor{UserID: uuid.New(), Role: enums.UserRoleOwner},
		customer: identity.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer},
		rider:    identity.Actor{UserID: uuid.New(), Role: enums.UserRoleDeliveryPartner},
	}
	f.partner = f.newPartner(t, f.rider.UserID, true)
	return f
}

func (f *fixture) newPartner(t *testing.T, userID uuid.UUID, available bool) *models.DeliveryPartner {
	t.Helper()
	p := &models.DeliveryPartner{UserID: userID, Name: "Ravi", Phone: "555-0101", VehicleNumber: "KA-01-1234", IsAvailable: available}
	require.NoError(t, f.db.Create(p).Error)
	if !available {
		require.NoError(t, f.db.Model(p).Update("is_available", false).Error)
	}
	return p
}

// serviceOver builds a second service sharing the fixture database but
// reading and writing through repo.
func (f *fixture) serviceOver(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Tx: f.tx, Policy: f.policy, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return svc
}

func (f *fixture) newUser(t *testing.T, role enums.UserRole) uuid.UUID {
	t.Helper()
	u := &models.User{Email: uuid.NewString() + "@freshcart.test", PasswordHash: "hash", Role: role}
	require.NoError(t, f.db.Create(u).Error)
	return u.ID
}

func (f *fixture) newProduct(t *testing.T, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Apples", Price: decimal.NewFromInt(40), Stock: stock, IsActive: true}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) newOrder(t *testing.T, customerID uuid.UUID, status enums.OrderStatus, createdAt time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	o := &models.Order{
		CustomerID:      customerID,
		Status:          status,
		TotalAmount:     decimal.NewFromInt(200),
		DeliveryAddress: "12 Market Road",
		PaymentMethod:   enums.PaymentMethodPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Items:           items,
		CreatedAt:       createdAt,
	}
	require.NoError(t, f.db.Create(o).Error)
	return o
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, f.db.First(&o, "id = ?", id).Error)
	return &o
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestFullDeliveryLifecycle(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	view, err := f.svc.AdvanceStatus(ctx, f.owner, order.ID, AdvanceStatusInput{Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, view.Status)

	view, err = f.svc.AssignPartner(ctx, f.owner, order.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	require.NoError(t, err)
	require.NotNil(t, view.DeliveryPartnerID)
	require.Equal(t, f.partner.ID, *view.DeliveryPartnerID)

	_, err = f.svc.AdvanceStatus(ctx, f.owner, order.ID, AdvanceStatusInput{Status: enums.OrderStatusPreparing})
	require.NoError(t, err)

	_, err = f.svc.AdvanceStatus(ctx, f.rider, order.ID, AdvanceStatusInput{Status: enums.OrderStatusOutForDelivery})
	requireCode(t, err, pkgerrors.CodeForbidden)

	view, err = f.svc.AdvanceStatus(ctx, f.owner, order.ID, AdvanceStatusInput{Status: enums.OrderStatusOutForDelivery})
	require.NoError(t, err)
	require.NotNil(t, view.EstimatedDeliveryTime)
	require.True(t, view.EstimatedDeliveryTime.Equal(fixedNow.Add(45*time.Minute)))

	view, err = f.svc.AdvanceStatus(ctx, f.rider, order.ID, AdvanceStatusInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, view.Status)
	require.NotNil(t, view.ActualDeliveryTime)
	require.Empty(t, view.NextStatuses)

	history, err := f.svc.History(ctx, f.customer, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Equal(t, enums.OrderStatusConfirmed, history[0].ToStatus)
	require.Equal(t, enums.UserRoleOwner, history[0].ActorRole)
	require.Equal(t, enums.OrderStatusDelivered, history[3].ToStatus)
	require.Equal(t, f.rider.UserID, history[3].ActorUserID)
}

func TestAdvanceStatusRejectsCustomers(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	_, err := f.svc.AdvanceStatus(context.Background(), f.customer, order.ID, AdvanceStatusInput{Status: enums.OrderStatusCancelled})
	requireCode(t, err, pkgerrors.CodeForbidden)
	require.Equal(t, enums.OrderStatusPending, f.reload(t, order.ID).Status)

	_, err = f.svc.AdvanceStatus(context.Background(), identity.Actor{UserID: uuid.New()}, order.ID, AdvanceStatusInput{Status: enums.OrderStatusConfirmed})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestAdvanceStatusRejectsSkippedSteps(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	_, err := f.svc.AdvanceStatus(context.Background(), f.owner, order.ID, AdvanceStatusInput{Status: enums.OrderStatusDelivered})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	require.Equal(t, enums.OrderStatusPending, f.reload(t, order.ID).Status)

	var events int64
	require.NoError(t, f.db.Model(&models.OrderStatusEvent{}).Count(&events).Error)
	require.Zero(t, events)
}

func TestTerminalOrdersStayTerminal(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	delivered := f.newOrder(t, f.customer.UserID, enums.OrderStatusDelivered, fixedNow)
	cancelled := f.newOrder(t, f.customer.UserID, enums.OrderStatusCancelled, fixedNow)

	_, err := f.svc.Cancel(context.Background(), f.owner, delivered.ID, nil)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = f.svc.AdvanceStatus(context.Background(), f.owner, cancelled.ID, AdvanceStatusInput{Status: enums.OrderStatusPending})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestPartnerScopedToAssignedOrders(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusConfirmed, fixedNow)

	_, err := f.svc.Cancel(ctx, f.rider, order.ID, nil)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.AssignPartner(ctx, f.owner, order.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	require.NoError(t, err)

	stranger := identity.Actor{UserID: uuid.New(), Role: enums.UserRoleDeliveryPartner}
	f.newPartner(t, stranger.UserID, true)
	_, err = f.svc.Cancel(ctx, stranger, order.ID, nil)
	requireCode(t, err, pkgerrors.CodeForbidden)

	noProfile := identity.Actor{UserID: uuid.New(), Role: enums.UserRoleDeliveryPartner}
	_, err = f.svc.Get(ctx, noProfile, order.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	// Preparation belongs to the store even once a partner is assigned.
	_, err = f.svc.AdvanceStatus(ctx, f.rider, order.ID, AdvanceStatusInput{Status: enums.OrderStatusPreparing})
	requireCode(t, err, pkgerrors.CodeForbidden)

	view, err := f.svc.Cancel(ctx, f.rider, order.ID, nil)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, view.Status)
}

func TestCancelRestocksWhenEnabled(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, config.PolicyConfig{RestockOnCancel: true})
	product := f.newProduct(t, 3)
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusConfirmed, fixedNow,
		models.OrderItem{ProductID: product.ID, Name: product.Name, Quantity: 2, Price: product.Price})
	note := "customer called"
	_, err := f.svc.Cancel(ctx, f.owner, order.ID, &note)
	require.NoError(t, err)

	var stock int
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", product.ID).Pluck("stock", &stock).Error)
	require.Equal(t, 5, stock)

	g := newFixture(t, config.PolicyConfig{})
	other := g.newProduct(t, 3)
	order = g.newOrder(t, g.customer.UserID, enums.OrderStatusPending, fixedNow,
		models.OrderItem{ProductID: other.ID, Name: other.Name, Quantity: 2, Price: other.Price})
	_, err = g.svc.Cancel(ctx, g.owner, order.ID, nil)
	require.NoError(t, err)
	require.NoError(t, g.db.Model(&models.Product{}).Where("id = ?", other.ID).Pluck("stock", &stock).Error)
	require.Equal(t, 3, stock)
}

func TestAssignPartnerRules(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	_, err := f.svc.AssignPartner(ctx, f.customer, order.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.AssignPartner(ctx, f.owner, order.ID, AssignPartnerInput{PartnerID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AssignPartner(ctx, f.owner, uuid.New(), AssignPartnerInput{PartnerID: f.partner.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)

	offline := f.newPartner(t, uuid.New(), false)
	_, err = f.svc.AssignPartner(ctx, f.owner, order.ID, AssignPartnerInput{PartnerID: offline.ID})
	requireCode(t, err, pkgerrors.CodeConflict)
	require.Nil(t, f.reload(t, order.ID).DeliveryPartnerID)

	preparing := f.newOrder(t, f.customer.UserID, enums.OrderStatusPreparing, fixedNow)
	_, err = f.svc.AssignPartner(ctx, f.owner, preparing.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	second := f.newPartner(t, uuid.New(), true)
	_, err = f.svc.AssignPartner(ctx, f.owner, order.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	require.NoError(t, err)
	view, err := f.svc.AssignPartner(ctx, f.owner, order.ID, AssignPartnerInput{PartnerID: second.ID})
	require.NoError(t, err)
	require.Equal(t, second.ID, *view.DeliveryPartnerID)
}

func TestExclusiveAssignment(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, config.PolicyConfig{ExclusivePartnerAssignment: true})
	first := f.newOrder(t, f.customer.UserID, enums.OrderStatusConfirmed, fixedNow)
	second := f.newOrder(t, f.customer.UserID, enums.OrderStatusConfirmed, fixedNow)
	_, err := f.svc.AssignPartner(ctx, f.owner, first.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	require.NoError(t, err)
	_, err = f.svc.AssignPartner(ctx, f.owner, second.ID, AssignPartnerInput{PartnerID: f.partner.ID})
	requireCode(t, err, pkgerrors.CodeConflict)

	g := newFixture(t, config.PolicyConfig{})
	first = g.newOrder(t, g.customer.UserID, enums.OrderStatusConfirmed, fixedNow)
	second = g.newOrder(t, g.customer.UserID, enums.OrderStatusConfirmed, fixedNow)
	_, err = g.svc.AssignPartner(ctx, g.owner, first.ID, AssignPartnerInput{PartnerID: g.partner.ID})
	require.NoError(t, err)
	_, err = g.svc.AssignPartner(ctx, g.owner, second.ID, AssignPartnerInput{PartnerID: g.partner.ID})
	require.NoError(t, err)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusOutForDelivery, fixedNow)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("delivery_partner_id", f.partner.ID).Error)

	_, err := f.svc.RecordPayment(ctx, f.customer, order.ID, RecordPaymentInput{Method: enums.PaymentMethodCash, Status: enums.PaymentStatusCompleted})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.RecordPayment(ctx, f.rider, order.ID, RecordPaymentInput{Status: enums.PaymentStatusCompleted})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.RecordPayment(ctx, f.rider, order.ID, RecordPaymentInput{Method: "card", Status: enums.PaymentStatusCompleted})
	requireCode(t, err, pkgerrors.CodeValidation)

	view, err := f.svc.RecordPayment(ctx, f.rider, order.ID, RecordPaymentInput{Method: enums.PaymentMethodCash, Status: enums.PaymentStatusCompleted})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, view.PaymentStatus)
	require.Equal(t, enums.PaymentMethodCash, view.PaymentMethod)
	require.NotNil(t, view.PaymentCollectedBy)
	require.Equal(t, f.rider.UserID, *view.PaymentCollectedBy)
	require.NotNil(t, view.PaymentCollectedAt)

	_, err = f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Status: enums.PaymentStatusFailed})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestRecordPaymentOnCancelledOrder(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusCancelled, fixedNow)

	_, err := f.svc.RecordPayment(context.Background(), f.owner, order.ID, RecordPaymentInput{Method: enums.PaymentMethodUPI, Status: enums.PaymentStatusCompleted})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestRecordPaymentFailedThenCompleted(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusDelivered, fixedNow)
	collector := f.newUser(t, enums.UserRoleDeliveryPartner)

	_, err := f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Method: enums.PaymentMethodUPI, Status: enums.PaymentStatusFailed})
	require.NoError(t, err)
	view, err := f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Status: enums.PaymentStatusCompleted, CollectedBy: &collector})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentMethodUPI, view.PaymentMethod)
	require.Equal(t, collector, *view.PaymentCollectedBy)
}

func TestRecordPaymentValidatesCollector(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusDelivered, fixedNow)

	unknown := uuid.New()
	_, err := f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Method: enums.PaymentMethodCash, Status: enums.PaymentStatusCompleted, CollectedBy: &unknown})
	requireCode(t, err, pkgerrors.CodeValidation)

	shopper := f.newUser(t, enums.UserRoleCustomer)
	_, err = f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Method: enums.PaymentMethodCash, Status: enums.PaymentStatusCompleted, CollectedBy: &shopper})
	requireCode(t, err, pkgerrors.CodeValidation)

	stored := f.reload(t, order.ID)
	require.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	require.Nil(t, stored.PaymentCollectedBy)

	// The acting user never needs a lookup.
	self := f.owner.UserID
	view, err := f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Method: enums.PaymentMethodCash, Status: enums.PaymentStatusCompleted, CollectedBy: &self})
	require.NoError(t, err)
	require.Equal(t, self, *view.PaymentCollectedBy)
}

// interleavedRepo runs a write on the open transaction right before each
// guarded update, as if another request had committed in between.
type interleavedRepo struct {
	Repository
	tx     *gorm.DB
	before func(tx *gorm.DB) error
}

func (r interleavedRepo) WithTx(tx *gorm.DB) Repository {
	return interleavedRepo{Repository: r.Repository.WithTx(tx), tx: tx, before: r.before}
}

func (r interleavedRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error) {
	if err := r.before(r.tx); err != nil {
		return 0, err
	}
	return r.Repository.UpdateStatus(ctx, id, from, to, extra)
}

func (r interleavedRepo) UpdatePayment(ctx context.Context, id uuid.UUID, fromStatus enums.PaymentStatus, fromMethod enums.PaymentMethod, updates map[string]any) (int64, error) {
	if err := r.before(r.tx); err != nil {
		return 0, err
	}
	return r.Repository.UpdatePayment(ctx, id, fromStatus, fromMethod, updates)
}

func TestAdvanceStatusConflictsWhenStatusMovedUnderneath(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	svc := f.serviceOver(t, interleavedRepo{
		Repository: NewRepository(f.db),
		before: func(tx *gorm.DB) error {
			return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusCancelled).Error
		},
	})

	_, err := svc.AdvanceStatus(context.Background(), f.owner, order.ID, AdvanceStatusInput{Status: enums.OrderStatusConfirmed})
	requireCode(t, err, pkgerrors.CodeConflict)

	require.Equal(t, enums.OrderStatusPending, f.reload(t, order.ID).Status)
	var events int64
	require.NoError(t, f.db.Model(&models.OrderStatusEvent{}).Count(&events).Error)
	require.Zero(t, events)
}

func TestRecordPaymentConflictsWhenPaymentMovedUnderneath(t *testing.T) {
	cases := []struct {
		name   string
		column string
		value  any
	}{
		{"status", "payment_status", enums.PaymentStatusFailed},
		{"method", "payment_method", enums.PaymentMethodUPI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, config.PolicyConfig{})
			order := f.newOrder(t, f.customer.UserID, enums.OrderStatusDelivered, fixedNow)

			svc := f.serviceOver(t, interleavedRepo{
				Repository: NewRepository(f.db),
				before: func(tx *gorm.DB) error {
					return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update(tc.column, tc.value).Error
				},
			})

			_, err := svc.RecordPayment(context.Background(), f.owner, order.ID, RecordPaymentInput{Method: enums.PaymentMethodCash, Status: enums.PaymentStatusFailed})
			requireCode(t, err, pkgerrors.CodeConflict)

			stored := f.reload(t, order.ID)
			require.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
			require.Equal(t, enums.PaymentMethodPending, stored.PaymentMethod)
		})
	}
}

// concurrently runs fn from n goroutines released together.
func concurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestConcurrentStatusChangesApplyOnce(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	errs := concurrently(4, func(int) error {
		_, err := f.svc.AdvanceStatus(ctx, f.owner, order.ID, AdvanceStatusInput{Status: enums.OrderStatusConfirmed})
		return err
	})

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
			continue
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) && !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, applied)
	require.Equal(t, enums.OrderStatusConfirmed, f.reload(t, order.ID).Status)

	var events int64
	require.NoError(t, f.db.Model(&models.OrderStatusEvent{}).Where("order_id = ?", order.ID).Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestConcurrentPaymentCompletionAppliesOnce(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusDelivered, fixedNow)
	methods := []enums.PaymentMethod{enums.PaymentMethodCash, enums.PaymentMethodUPI}

	errs := concurrently(len(methods), func(i int) error {
		_, err := f.svc.RecordPayment(ctx, f.owner, order.ID, RecordPaymentInput{Method: methods[i], Status: enums.PaymentStatusCompleted})
		return err
	})

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "payment completed twice")
			winner = i
			continue
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) && !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.NotEqual(t, -1, winner)

	stored := f.reload(t, order.ID)
	require.Equal(t, enums.PaymentStatusCompleted, stored.PaymentStatus)
	require.Equal(t, methods[winner], stored.PaymentMethod)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	order := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow)

	view, err := f.svc.Get(ctx, f.customer, order.ID)
	require.NoError(t, err)
	require.Equal(t, []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}, view.NextStatuses)

	other := identity.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	_, err = f.svc.Get(ctx, other, order.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.Get(ctx, other, uuid.New())
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Get(ctx, f.owner, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()
	var mine []uuid.UUID
	for i := 0; i < 3; i++ {
		o := f.newOrder(t, f.customer.UserID, enums.OrderStatusPending, fixedNow.Add(time.Duration(i)*time.Minute))
		mine = append(mine, o.ID)
	}
	f.newOrder(t, uuid.New(), enums.OrderStatusPending, fixedNow)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", mine[0]).Update("delivery_partner_id", f.partner.ID).Error)

	page, err := f.svc.List(ctx, f.customer, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, mine[2], page.Items[0].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = f.svc.List(ctx, f.customer, ListFilter{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, mine[0], page.Items[0].ID)
	require.Empty(t, page.NextCursor)

	page, err = f.svc.List(ctx, f.owner, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)

	page, err = f.svc.List(ctx, f.rider, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, mine[0], page.Items[0].ID)

	page, err = f.svc.List(ctx, identity.Actor{UserID: uuid.New(), Role: enums.UserRoleDeliveryPartner}, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	delivered := enums.OrderStatusDelivered
	page, err = f.svc.List(ctx, f.owner, ListFilter{Status: &delivered})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	_, err = f.svc.List(ctx, f.owner, ListFilter{Cursor: "%%%"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
