package enums

import "fmt"

// UserRole maps to the role column of the users table.
type UserRole string

const (
	UserRoleUser1 UserRole = "USER1"
	UserRoleUser2 UserRole = "USER2"
	UserRoleAdmin UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleUser1,
	UserRoleUser2,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
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
