package enums

import "fmt"

// UserRole is the single role a user holds for the lifetime of the account.
type UserRole string

const (
	UserRoleOwner           UserRole = "owner"
	UserRoleCustomer        UserRole = "customer"
	UserRoleDeliveryPartner UserRole = "delivery_partner"
)

var validUserRoles = []UserRole{
	UserRoleOwner,
	UserRoleCustomer,
	UserRoleDeliveryPartner,
}

// String implements fmt.Stringer.
func (v UserRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known UserRole.
func (v UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// SelfRegistrable reports whether a user may sign up with the role.
// Owner accounts are provisioned out of band.
func (v UserRole) SelfRegistrable() bool {
	return v == UserRoleCustomer || v == UserRoleDeliveryPartner
}
