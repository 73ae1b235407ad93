package orders

import (
	"testing"

	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
)

func TestCheckTransitionTable(t *testing.T) {
	owner := enums.UserRoleOwner
	partner := enums.UserRoleDeliveryPartner
	customer := enums.UserRoleCustomer

	cases := []struct {
		from, to enums.OrderStatus
		role     enums.UserRole
		want     pkgerrors.Code
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, owner, ""},
		{enums.OrderStatusConfirmed, enums.OrderStatusPreparing, owner, ""},
		{enums.OrderStatusPreparing, enums.OrderStatusOutForDelivery, owner, ""},
		{enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered, partner, ""},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, owner, ""},
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled, partner, ""},

		{enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered, owner, pkgerrors.CodeForbidden},
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, partner, pkgerrors.CodeForbidden},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, customer, pkgerrors.CodeForbidden},

		{enums.OrderStatusPending, enums.OrderStatusDelivered, owner, pkgerrors.CodeInvalidTransition},
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled, owner, pkgerrors.CodeInvalidTransition},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, owner, pkgerrors.CodeInvalidTransition},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, owner, pkgerrors.CodeInvalidTransition},
		{enums.OrderStatusPending, enums.OrderStatus("shipped"), owner, pkgerrors.CodeInvalidTransition},
	}

	for _, tc := range cases {
		err := CheckTransition(tc.from, tc.to, tc.role)
		if tc.want == "" {
			if err != nil {
				t.Fatalf("%s -> %s by %s: unexpected error %v", tc.from, tc.to, tc.role, err)
			}
			continue
		}
		if !pkgerrors.IsCode(err, tc.want) {
			t.Fatalf("%s -> %s by %s: expected %s, got %v", tc.from, tc.to, tc.role, tc.want, err)
		}
	}
}

func TestInvalidTransitionCarriesEdge(t *testing.T) {
	err := CheckTransition(enums.OrderStatusDelivered, enums.OrderStatusPending, enums.UserRoleOwner)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error")
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["from"] != "delivered" || details["to"] != "pending" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, status := range enums.OrderStatuses() {
		next := NextStatuses(status)
		if status.IsTerminal() && len(next) != 0 {
			t.Fatalf("terminal status %s has exits %v", status, next)
		}
		if !status.IsTerminal() && len(next) == 0 {
			t.Fatalf("active status %s has no exits", status)
		}
	}
}
