package model

import (
	"encoding/json"
	"time"
)

// Roles stored in users.role and carried in the access token.
const (
	RolePassenger = "passenger"
	RoleDriver    = "driver"
	RoleAdmin     = "admin"
)

// User represents a row of the `users` table.  PasswordHash never leaves the
// server; Preferences is the raw JSON document validated on write.
//
// Fields:
//  Role            – passenger, driver or admin.
//  IsVerified      – drivers can publish trips only once verified.
//  LicenseDocument – stored path/URL of the uploaded license, if any.
//  PhoneVerified   – reset whenever Phone changes.
type User struct {
	ID              uint64          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	PasswordHash    string          `json:"-"`
	Phone           string          `json:"phone"`
	Role            string          `json:"role"`
	ProfilePhoto    string          `json:"profile_photo"`
	LicenseDocument string          `json:"license_document,omitempty"`
	IsVerified      bool            `json:"is_verified"`
	Bio             string          `json:"bio"`
	Preferences     json.RawMessage `json:"preferences,omitempty"`
	PhoneVerified   bool            `json:"phone_verified"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PublicUser is what other users may see of a profile.
type PublicUser struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	ProfilePhoto string          `json:"profile_photo"`
	IsVerified   bool            `json:"is_verified"`
	Bio          string          `json:"bio"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Public strips contact details and credentials.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Role:         u.Role,
		ProfilePhoto: u.ProfilePhoto,
		IsVerified:   u.IsVerified,
		Bio:          u.Bio,
		Preferences:  u.Preferences,
		CreatedAt:    u.CreatedAt,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
