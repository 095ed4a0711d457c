package types

import "time"

// RecoveryRequest is a pending password recovery for one email address.
// At most one request exists per email; issuing a new one replaces it.
type RecoveryRequest struct {
	Email     string    `json:"email" db:"email"`
	UserName  string    `json:"user_name" db:"user_name"`
	Code      string    `json:"-" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// ProfileUpdateRequest is a pending, code-confirmed change to the
// signed-in user's email and/or password. At most one exists per user.
type ProfileUpdateRequest struct {
	UserID string `json:"user_id" db:"user_id"`

	// NewEmail is applied on confirmation when non-empty.
	NewEmail string `json:"new_email,omitempty" db:"new_email"`

	// NewPasswordHash is the bcrypt hash of the requested password,
	// applied on confirmation when non-empty.
	NewPasswordHash string `json:"-" db:"new_password_hash"`

	Code      string    `json:"-" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
