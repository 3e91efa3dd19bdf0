// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists user accounts.
type Repository interface {
	// Create inserts user and fills in ID and timestamps.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrorNotFound when no user has that username.
	GetUserByLogin(ctx context.Context, username string) (*models.User, error)
	// FindByID returns common.ErrorNotFound when the user does not exist.
	FindByID(ctx context.Context, id int64) (*models.User, error)
	// MarkEmailVerified flips verified_email to true.
	MarkEmailVerified(ctx context.Context, id int64) error
}
