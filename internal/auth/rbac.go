package auth

import "slices"

// Role is a coarse capability granted to a principal
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Principal is an authenticated identity with a set of authorities.
type Principal interface {
	Identifier() string
	Authorities() []string
}

// HasAuthority reports whether principal has been granted authority
func HasAuthority(principal Principal, authority string) bool {
	if principal == nil || authority == "" {
		return false
	}
	return slices.Contains(principal.Authorities(), authority)
}

// HasRole is HasAuthority for a Role
func HasRole(principal Principal, role Role) bool {
	return HasAuthority(principal, string(role))
}
