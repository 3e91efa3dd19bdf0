// Package refreshtokens declares the server-side repository contract for
// refresh tokens and its PostgreSQL implementation. Tokens are addressed by
// the hex SHA-256 digest of their plaintext.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for issuing, retrieving and revoking refresh tokens.
type Repository interface {
	// Create stores a new token digest for userID expiring at expiresAt.
	Create(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) (*models.RefreshToken, error)

	// FindByHash looks a token up by its digest. Implementations return
	// common.ErrorNotFound when the token is absent.
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Update persists the revocation instant of token. Only a token that is
	// not yet revoked can be updated; otherwise common.ErrTokenRevoked is
	// returned, which is how a concurrent rotation of the same token loses.
	Update(ctx context.Context, token *models.RefreshToken) error
}
