package enums

// MemberRole describes what a caller is allowed to do. Shoppers own carts
// and sessions; admins work the manual remediation queue.
type MemberRole string

const (
	RoleShopper MemberRole = "shopper"
	RoleAdmin   MemberRole = "admin"
)

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool {
	switch m {
	case RoleShopper, RoleAdmin:
		return true
	}
	return false
}
