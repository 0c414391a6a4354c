package domain

import "time"

// Role is the access level the identity service assigns to a user.
type Role string

const (
	RoleViewer  Role = "VIEWER"
	RoleAdmin   Role = "ADMIN"
	RoleAdvisor Role = "ADVISOR"
	RoleBroker  Role = "BROKER"
)

// Roles lists every role the identity service accepts, in display order.
var Roles = []Role{RoleViewer, RoleAdmin, RoleAdvisor, RoleBroker}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the cached copy of the signed-in user kept in the session.
type User struct {
	ID        string     `json:"id" bson:"id"`
	Email     string     `json:"email" bson:"email"`
	Role      Role       `json:"role" bson:"role"`
	CreatedAt time.Time  `json:"createdAt,omitempty" bson:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" bson:"updated_at,omitempty"`
}

// IsAdmin reports whether the cached role unlocks the admin-only screens.
// It gates rendering only; the identity service enforces authorization.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile is the full user record returned by the identity service.
// Password is the plaintext value the service echoes back.
type Profile struct {
	ID        string
	Email     string
	Password  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt *time.Time
}
