package enums

import "slices"

// UserRole maps to the user_role enum.
type UserRole string

const (
	UserRoleMerchant UserRole = "merchant"
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

var userRoles = []UserRole{UserRoleMerchant, UserRoleCustomer, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return slices.Contains(userRoles, r) }

// ParseUserRole accepts any casing and surrounding whitespace.
func ParseUserRole(value string) (UserRole, error) {
	return parse(userRoles, value, "user role", lenient)
}
