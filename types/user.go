package types

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePublisher, RoleSubscriber:
		return true
	}
	return false
}

// UserStatus is the lifecycle state of an account. Only active accounts
// may sign in.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
	UserStatusPending UserStatus = "pending"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusBlocked, UserStatusPending:
		return true
	}
	return false
}

// SubscriptionPlan is the reader plan attached to subscriber accounts.
type SubscriptionPlan string

const (
	PlanFree    SubscriptionPlan = "free"
	PlanPremium SubscriptionPlan = "premium"
)

// User represents an account in the system.
// It contains identity, role, moderation status and audit metadata.
type User struct {
	// ID is the opaque unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Name is the user's display name. Account recovery also accepts it
	// as an identifier, compared case-insensitively.
	Name string `json:"name" db:"name"`

	// Email is the user's email address, stored lower-cased and unique.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// Status controls whether the account may sign in. Publishers start
	// out pending until an administrator activates them.
	Status UserStatus `json:"status" db:"status"`

	// IP is the last known origin address of the user.
	IP string `json:"ip,omitempty" db:"ip"`

	// SubscriptionPlan is set for subscribers only.
	SubscriptionPlan SubscriptionPlan `json:"subscription_plan,omitempty" db:"subscription_plan"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// JoinedAt is the timestamp when the account was created.
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the account may sign in.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}
