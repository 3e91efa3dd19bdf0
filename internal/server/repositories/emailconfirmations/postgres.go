package emailconfirmations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	query :=
		`UPDATE email_confirmations SET revoked = TRUE
		 WHERE user_id = $1 AND revoked = FALSE
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.EmailConfirmation) error {
	query :=
		`INSERT INTO email_confirmations (token_id, user_id, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, c.TokenID, c.UserID, c.ExpiresAt).Scan(&c.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", common.ErrAlreadyExists, pgErr.ConstraintName)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByTokenID(ctx context.Context, tokenID string) (*models.EmailConfirmation, error) {
	query :=
		`SELECT token_id, user_id, expires_at, revoked, created_at FROM email_confirmations
		 WHERE token_id = $1
		 `

	c := &models.EmailConfirmation{}
	err := r.db.QueryRowContext(ctx, query, tokenID).Scan(&c.TokenID, &c.UserID, &c.ExpiresAt, &c.Revoked, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenID string) error {
	query :=
		`UPDATE email_confirmations SET revoked = TRUE
		 WHERE token_id = $1 AND revoked = FALSE
		 `

	res, err := r.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrTokenRevoked
	}
	return nil
}
