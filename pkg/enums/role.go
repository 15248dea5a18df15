package enums

import "fmt"

// Role is the actor role carried in access tokens.
type Role string

const (
	RoleCustomer    Role = "customer"
	RoleShipper     Role = "shipper"
	RoleIntakeStaff Role = "intake_staff"
	RoleAdmin       Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleShipper,
	RoleIntakeStaff,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role operates the back office.
func (r Role) IsStaff() bool {
	return r == RoleIntakeStaff || r == RoleAdmin
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
