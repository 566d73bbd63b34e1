package model

import "time"

// Role groups permission codes for assignment to authors. Role 1 is
// the built-in Superadmin.
type Role struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleWithPermissions carries a role together with its granted codes.
type RoleWithPermissions struct {
	*Role
	Permissions []string `json:"permissions"`
}
