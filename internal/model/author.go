package model

import "time"

// Author is an account that can sign in and edit pages. RoleName is
// filled by queries that join the roles table and is otherwise empty.
type Author struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	RoleID       int       `json:"role_id"`
	RoleName     string    `json:"role_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthorLoginRequest carries sign-in credentials.
type AuthorLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AuthorLoginResponse is the successful login body: the token plus the
// account and its flattened permission codes.
type AuthorLoginResponse struct {
	Token       string   `json:"token"`
	Author      Author   `json:"author"`
	Permissions []string `json:"permissions"`
}

// CreateAuthorRequest is the payload for creating an author account.
type CreateAuthorRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	RoleID   int    `json:"role_id" binding:"required,min=1"`
}

// UpdateAuthorRequest is the payload for updating an author account.
// Empty fields are left unchanged.
type UpdateAuthorRequest struct {
	Email    string `json:"email" binding:"omitempty,email,max=255"`
	Name     string `json:"name" binding:"omitempty,min=2,max=100"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
	RoleID   int    `json:"role_id" binding:"omitempty,min=1"`
}

// ChangePasswordRequest is the payload for an author changing their own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=6,max=128"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=128"`
}
