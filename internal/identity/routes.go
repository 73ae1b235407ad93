package identity

import "github.com/freshcart/grocery-backend/pkg/enums"

const (
	OwnerDashboardPath    = "/owner/dashboard"
	CustomerDashboardPath = "/customer/dashboard"
	DeliveryDashboardPath = "/delivery/dashboard"
	FallbackPath          = "/"
)

// RouteForRole returns the default landing path for a role.
func RouteForRole(role enums.UserRole) string {
	switch role {
	case enums.UserRoleOwner:
		return OwnerDashboardPath
	case enums.UserRoleCustomer:
		return CustomerDashboardPath
	case enums.UserRoleDeliveryPartner:
		return DeliveryDashboardPath
	default:
		return FallbackPath
	}
}
