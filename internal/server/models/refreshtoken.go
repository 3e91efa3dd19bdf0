package models

import "time"

// RefreshToken is a stored refresh token. Only the SHA-256 hex digest of the
// plaintext is kept.
type RefreshToken struct {
	ID        string
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsValid reports whether the token can still be used at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	if !now.Before(t.ExpiresAt) {
		return false
	}
	return t.RevokedAt == nil || now.Before(*t.RevokedAt)
}

// Revoke marks the token revoked as of now.
func (t *RefreshToken) Revoke(now time.Time) {
	t.RevokedAt = &now
}
