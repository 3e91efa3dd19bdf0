package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type refreshTokensRepo struct{ s *Store }

func (r *refreshTokensRepo) Create(_ context.Context, tokenHash string, userID int64, expiresAt time.Time) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := &models.RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	stored := *t
	r.s.refreshTokens[tokenHash] = &stored
	return t, nil
}

func (r *refreshTokensRepo) FindByHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refreshTokens[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		cp.RevokedAt = &at
	}
	return &cp, nil
}

func (r *refreshTokensRepo) Update(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.refreshTokens {
		if t.ID != token.ID {
			continue
		}
		if t.RevokedAt != nil {
			return common.ErrTokenRevoked
		}
		if token.RevokedAt != nil {
			at := *token.RevokedAt
			t.RevokedAt = &at
		}
		return nil
	}
	return common.ErrTokenRevoked
}
