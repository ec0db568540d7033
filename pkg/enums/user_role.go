package enums

// UserRole distinguishes storefront customers from back-office staff.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleSupport  UserRole = "support"
	UserRoleAdmin    UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleCustomer, UserRoleSupport, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role may act on any customer's data.
func (r UserRole) IsStaff() bool {
	return r == UserRoleSupport || r == UserRoleAdmin
}

func (r UserRole) String() string {
	return string(r)
}
