package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type confirmationsRepo struct{ s *Store }

func (r *confirmationsRepo) RevokeAllForUser(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.confirmations {
		if c.UserID == userID {
			c.Revoked = true
		}
	}
	return nil
}

func (r *confirmationsRepo) Create(_ context.Context, c *models.EmailConfirmation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, live := range r.s.confirmations {
		if live.UserID == c.UserID && !live.Revoked {
			return fmt.Errorf("%w: live confirmation for user %d", common.ErrAlreadyExists, c.UserID)
		}
	}

	c.CreatedAt = time.Now()
	stored := *c
	r.s.confirmations[c.TokenID] = &stored
	return nil
}

func (r *confirmationsRepo) FindByTokenID(_ context.Context, tokenID string) (*models.EmailConfirmation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.confirmations[tokenID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *confirmationsRepo) Revoke(_ context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.confirmations[tokenID]
	if !ok || c.Revoked {
		return common.ErrTokenRevoked
	}
	c.Revoked = true
	return nil
}
