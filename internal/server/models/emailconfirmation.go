package models

import "time"

// EmailConfirmation records an issued confirmation token by its jti. The
// signed token itself is never stored.
type EmailConfirmation struct {
	TokenID   string
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
