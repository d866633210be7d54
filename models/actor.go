package models

// Role is the closed set of principal roles in the system
type Role string

// All roles an authenticated caller can hold
const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies the authenticated caller of a mutating operation. It is
// resolved once at the request boundary and threaded through every core call.
type Actor struct {
	Ref  string `json:"ref"`
	Role Role   `json:"role"`
}
