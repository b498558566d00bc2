package model

import "time"

// User represents an application account as stored in the `users` table.
// Each field corresponds to a column. The json tags are omitted because
// these structs are used internally by the repository layer; handlers
// expose UserSummary instead so the password hash and refresh token can
// never leak into a response.
//
// Fields:
//  ID           – primary key identifier of the account.
//  Username     – unique display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account is active.
//  Role         – role string, "user" by default.
//  RefreshToken – the single live refresh token (null until first login).
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	Role         string    // users.role
	RefreshToken *string   // users.refresh_token (nullable)
	CreatedAt    time.Time // users.created_at
}

// UserSummary is the client-facing shape of an account. It intentionally
// carries no credential material.
type UserSummary struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary converts a stored user into its client-facing shape.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
