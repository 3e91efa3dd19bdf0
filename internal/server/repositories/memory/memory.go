// Package memory is an in-process RepositoryManager. All repositories share
// one Store guarded by a mutex; the DBTX they are bound to is ignored, so
// transaction rollback is not modelled.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/emailconfirmations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// Store holds all rows.
type Store struct {
	mu            sync.Mutex
	nextUserID    int64
	users         map[int64]*models.User
	refreshTokens map[string]*models.RefreshToken
	confirmations map[string]*models.EmailConfirmation
}

// Manager implements repomanager.RepositoryManager over a Store.
type Manager struct {
	store *Store
}

// NewManager returns a manager with an empty store.
func NewManager() *Manager {
	return &Manager{store: &Store{
		users:         map[int64]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		confirmations: map[string]*models.EmailConfirmation{},
	}}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Users(dbx.DBTX) users.Repository { return &usersRepo{s: m.store} }

func (m *Manager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &refreshTokensRepo{s: m.store}
}

func (m *Manager) EmailConfirmations(dbx.DBTX) emailconfirmations.Repository {
	return &confirmationsRepo{s: m.store}
}
