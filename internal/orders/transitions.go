package orders

import (
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
)

// Transition is one permitted status edge and the roles that may take it.
// Delivery partners may only act on orders assigned to them.
type Transition struct {
	From  enums.OrderStatus
	To    enums.OrderStatus
	Roles []enums.UserRole
}

// Allows reports whether role may take this edge.
func (t Transition) Allows(role enums.UserRole) bool {
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Transitions is the authoritative order state machine.
var Transitions = []Transition{
	{From: enums.OrderStatusPending, To: enums.OrderStatusConfirmed, Roles: []enums.UserRole{enums.UserRoleOwner}},
	{From: enums.OrderStatusConfirmed, To: enums.OrderStatusPreparing, Roles: []enums.UserRole{enums.UserRoleOwner}},
	{From: enums.OrderStatusPreparing, To: enums.OrderStatusOutForDelivery, Roles: []enums.UserRole{enums.UserRoleOwner}},
	{From: enums.OrderStatusOutForDelivery, To: enums.OrderStatusDelivered, Roles: []enums.UserRole{enums.UserRoleDeliveryPartner}},
	{From: enums.OrderStatusPending, To: enums.OrderStatusCancelled, Roles: []enums.UserRole{enums.UserRoleOwner, enums.UserRoleDeliveryPartner}},
	{From: enums.OrderStatusConfirmed, To: enums.OrderStatusCancelled, Roles: []enums.UserRole{enums.UserRoleOwner, enums.UserRoleDeliveryPartner}},
}

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

var transitionIndex = func() map[edge]Transition {
	m := make(map[edge]Transition, len(Transitions))
	for _, t := range Transitions {
		m[edge{t.From, t.To}] = t
	}
	return m
}()

// LookupTransition finds the edge from -> to.
func LookupTransition(from, to enums.OrderStatus) (Transition, bool) {
	t, ok := transitionIndex[edge{from, to}]
	return t, ok
}

// NextStatuses lists every status reachable from status in one step, for any role.
func NextStatuses(status enums.OrderStatus) []enums.OrderStatus {
	if status.IsTerminal() {
		return nil
	}
	var next []enums.OrderStatus
	for _, t := range Transitions {
		if t.From == status {
			next = append(next, t.To)
		}
	}
	return next
}

// CheckTransition validates the edge and the role in that order.
func CheckTransition(from, to enums.OrderStatus, role enums.UserRole) error {
	t, ok := LookupTransition(from, to)
	if !ok {
		return invalidTransition(from.String(), to.String())
	}
	if !t.Allows(role) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot perform this status change")
	}
	return nil
}

func invalidTransition(from, to string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot move to the requested status").
		WithDetails(map[string]any{"from": from, "to": to})
}
