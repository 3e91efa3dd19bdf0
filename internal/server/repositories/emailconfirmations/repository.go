// Package emailconfirmations persists issued email-confirmation records.
// At most one record per user is live (not revoked) at a time.
package emailconfirmations

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// RevokeAllForUser revokes every live record of userID.
	RevokeAllForUser(ctx context.Context, userID int64) error
	// Create inserts a new live record. It fails with
	// common.ErrAlreadyExists while the user still has a live one.
	Create(ctx context.Context, c *models.EmailConfirmation) error
	// FindByTokenID returns common.ErrorNotFound when no record has that jti.
	FindByTokenID(ctx context.Context, tokenID string) (*models.EmailConfirmation, error)
	// Revoke consumes a live record; an already revoked one yields
	// common.ErrTokenRevoked.
	Revoke(ctx context.Context, tokenID string) error
}
