package models

// UserRole is the caller role asserted by the gateway.
type UserRole string

// Roles recognised by the services.
const (
	RoleStudent    UserRole = "STUDENT"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleAdmin      UserRole = "ADMIN"
)

// Identity is the pre-verified caller supplied by the gateway. It is trusted verbatim.
type Identity struct {
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
}
