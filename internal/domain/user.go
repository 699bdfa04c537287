package domain

import "time"

// User roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// UserProfile is an operator account. Email is unique.
type UserProfile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ItemID implements listctl.Item.
func (u UserProfile) ItemID() string { return u.ID }

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleManager || r == RoleUser
}

// Invitation is a pending invite for a new operator account.
type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemID implements listctl.Item.
func (i Invitation) ItemID() string { return i.ID }

// Credential is the stored password hash for a user.
type Credential struct {
	UserID       string `json:"user_id"`
	PasswordHash string `json:"password_hash"`
}

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}
