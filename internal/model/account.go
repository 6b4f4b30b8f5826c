package model

import (
	"time"

	"github.com/iliyamo/rolegate/internal/role"
)

// Account is a row of the `accounts` table: the login identity and its
// role tag.  Accounts are never hard deleted; deactivation clears IsActive
// and from then on the account can neither log in nor use tokens.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, lower-cased login key.
//  PasswordHash – bcrypt hash, never serialised.
//  Role         – one tag of the closed role set.
//  IsActive     – false once the account is deactivated.
type Account struct {
	ID           uint64    `json:"id"`         // accounts.id
	Email        string    `json:"email"`      // accounts.email
	PasswordHash string    `json:"-"`          // accounts.password_hash
	Role         role.Role `json:"role"`       // accounts.role
	IsActive     bool      `json:"is_active"`  // accounts.is_active
	CreatedAt    time.Time `json:"created_at"` // accounts.created_at
	UpdatedAt    time.Time `json:"updated_at"` // accounts.updated_at
}

// Principal returns the authorization view of the account.
func (a Account) Principal() role.Principal {
	return role.Principal{AccountID: a.ID, Role: a.Role}
}

// Profile holds the descriptive attributes attached one-to-one to an
// account (`profiles` table).  It is created in the same transaction as
// the account.
type Profile struct {
	AccountID uint64    `json:"account_id"` // profiles.account_id
	FullName  string    `json:"full_name"`  // profiles.full_name
	Phone     string    `json:"phone"`      // profiles.phone
	Bio       string    `json:"bio"`        // profiles.bio
	Verified  bool      `json:"verified"`   // profiles.verified
	Rating    float64   `json:"rating"`     // profiles.rating, average of ride reviews
	UpdatedAt time.Time `json:"updated_at"` // profiles.updated_at
}

// RefreshToken is a row of `refresh_tokens`.  Only the SHA-256 hash of the
// raw token is persisted.
type RefreshToken struct {
	ID        uint64
	AccountID uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked reports whether the token has been revoked.
func (t RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// Expired reports whether the token is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
