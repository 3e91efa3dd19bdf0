// Package services contains server-side business logic. This file implements
// UserService, which handles signup, signin, email confirmation and
// refresh-token rotation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/queue"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/sethvargo/go-retry"
)

const (
	confirmationRetries    = 3
	confirmationRetryDelay = 10 * time.Millisecond
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations. Domain failures
// are returned as the sentinel errors of package common; infrastructure
// failures are logged and returned as common.ErrorInternal.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	queue                        queue.Queue
	hasher                       auth.PasswordHasher
	authority                    *auth.ConfirmationAuthority
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	log                          logging.Logger
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories, the email job
// queue and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, q queue.Queue, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		queue:                        q,
		hasher:                       auth.NewArgon2idHasher(),
		authority:                    auth.NewConfirmationAuthority(cfg.ConfirmationTokenValidityDuration),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		log:                          log.With("module", "users"),
		now:                          time.Now,
	}
}

// Signup creates the user, issues a confirmation token and enqueues the
// confirmation email. A queue failure fails the call, but the user and the
// confirmation record stay committed.
func (s *UserService) Signup(ctx context.Context, username, firstName, email, password string) (*models.User, error) {
	user := models.NewUser(username, firstName, email, s.hasher)
	if err := user.SetPassword(password); err != nil {
		if errors.Is(err, common.ErrEmptyInput) {
			return nil, err
		}
		return nil, s.internal(ctx, "hash password", err)
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, s.internal(ctx, "create user", err)
	}

	token, err := s.issueConfirmation(ctx, created)
	if err != nil {
		return nil, err
	}
	if err := s.enqueueConfirmation(ctx, created, token); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user signed up", "user_id", created.ID)
	return created, nil
}

// Signin verifies credentials and returns an access token only.
func (s *UserService) Signin(ctx context.Context, username, password string) (string, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	access, err := user.IssueJWTWithTTL(s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", s.internal(ctx, "issue access token", err)
	}
	return access, nil
}

// SigninV2 verifies credentials and returns an access token together with a
// persisted refresh token.
func (s *UserService) SigninV2(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.emitNewTokens(ctx, s.db, user)
}

// IssueConfirmationToken issues a new confirmation token for userID and
// revokes every earlier one.
func (s *UserService) IssueConfirmationToken(ctx context.Context, userID int64) (string, error) {
	_, token, err := s.reissue(ctx, userID)
	return token, err
}

// SendEmailConfirmation issues a new confirmation token for userID and
// enqueues the email carrying it. The token only ever reaches the user's
// mailbox.
func (s *UserService) SendEmailConfirmation(ctx context.Context, userID int64) error {
	user, token, err := s.reissue(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.enqueueConfirmation(ctx, user, token); err != nil {
		return err
	}
	s.log.Info(ctx, "confirmation email requested", "user_id", user.ID)
	return nil
}

// ConfirmUserEmail consumes a confirmation token: the user is marked
// verified and the record revoked in one transaction.
func (s *UserService) ConfirmUserEmail(ctx context.Context, token string) error {
	v, err := s.authority.ValidateToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrConfiguration) {
			return s.internal(ctx, "validate confirmation token", err)
		}
		s.log.Debug(ctx, "confirmation token rejected", "error", err)
		return err
	}
	if !v.IsValid {
		return common.ErrInvalidToken
	}

	record, err := s.repomanager.EmailConfirmations(s.db).FindByTokenID(ctx, v.Payload.TokenID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return s.internal(ctx, "find confirmation", err)
	}

	if record.UserID != v.Payload.UserID {
		s.log.Warn(ctx, "confirmation token does not match its record",
			"token_id", record.TokenID, "record_user_id", record.UserID, "token_user_id", v.Payload.UserID)
		return common.ErrTokenMismatch
	}
	if record.Revoked {
		return common.ErrTokenRevoked
	}
	if !s.now().Before(record.ExpiresAt) {
		return common.ErrTokenExpired
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, record.UserID)
	if err != nil {
		return s.internal(ctx, "find user", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.EmailConfirmations(tx).Revoke(ctx, record.TokenID)
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenRevoked) {
			return err
		}
		return s.internal(ctx, "confirm email", err)
	}

	s.log.Info(ctx, "email confirmed", "user_id", user.ID)
	return nil
}

// RefreshAccessToken rotates a refresh token. The new pair is written and
// the presented token revoked in one transaction; if another request
// rotated the same token first, this one fails and writes nothing.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidRefreshToken
	}

	stored, err := s.repomanager.RefreshTokens(s.db).FindByHash(ctx, common.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "find refresh token", err)
	}

	if !stored.IsValid(s.now()) {
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "find user", err)
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		pair, err = s.emitNewTokens(ctx, tx, user)
		if err != nil {
			return err
		}
		stored.Revoke(s.now())
		return s.repomanager.RefreshTokens(tx).Update(ctx, stored)
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenRevoked) {
			s.log.Warn(ctx, "refresh token reused", "token_id", stored.ID, "user_id", user.ID)
			return nil, common.ErrInvalidRefreshToken
		}
		if errors.Is(err, common.ErrorInternal) {
			return nil, err
		}
		return nil, s.internal(ctx, "rotate refresh token", err)
	}
	return pair, nil
}

// CurrentUser resolves the principal an access token was issued to. Bad or
// expired tokens and tokens of deleted users all yield common.ErrInvalidToken.
func (s *UserService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrConfiguration) {
			return nil, s.internal(ctx, "verify access token", err)
		}
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.internal(ctx, "find user", err)
	}
	return user, nil
}

// --- helpers below ---

// authenticate collapses unknown usernames and wrong passwords into
// common.ErrInvalidCredentials. Unknown usernames still pay for one hash
// verification.
func (s *UserService) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Validate(password, auth.DummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "find user", err)
	}

	user.SetHasher(s.hasher)
	ok, err := user.ValidatePassword(password)
	if err != nil {
		return nil, s.internal(ctx, "validate password", err, "user_id", user.ID)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) emitNewTokens(ctx context.Context, tx dbx.DBTX, user *models.User) (*TokenPair, error) {
	access, err := user.IssueJWTWithTTL(s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, s.internal(ctx, "issue access token", err)
	}
	refresh, err := user.IssueRefreshToken()
	if err != nil {
		return nil, s.internal(ctx, "issue refresh token", err)
	}

	expiresAt := s.now().Add(s.refreshTokenValidityDuration)
	if _, err := s.repomanager.RefreshTokens(tx).Create(ctx, common.HashToken(refresh), user.ID, expiresAt); err != nil {
		return nil, s.internal(ctx, "store refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) reissue(ctx context.Context, userID int64) (*models.User, string, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", err
		}
		return nil, "", s.internal(ctx, "find user", err)
	}

	if user.VerifiedEmail {
		return nil, "", common.ErrAlreadyVerified
	}

	token, err := s.issueConfirmation(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// issueConfirmation replaces the live confirmation record of user. The store
// allows one live record per user, so a concurrent issuer makes Create fail
// with common.ErrAlreadyExists; the whole replacement is then retried and
// the later issuer wins.
func (s *UserService) issueConfirmation(ctx context.Context, user *models.User) (string, error) {
	c, err := user.GenerateConfirmationToken(s.authority, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrMissingEmail) {
			return "", err
		}
		return "", s.internal(ctx, "issue confirmation token", err)
	}

	backoff := retry.WithMaxRetries(confirmationRetries, retry.NewConstant(confirmationRetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.EmailConfirmations(tx)
			if err := repo.RevokeAllForUser(ctx, user.ID); err != nil {
				return err
			}
			return repo.Create(ctx, &models.EmailConfirmation{
				TokenID:   c.TokenID,
				UserID:    user.ID,
				ExpiresAt: c.ExpiresAt,
			})
		})
		if errors.Is(err, common.ErrAlreadyExists) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", s.internal(ctx, "store confirmation", err, "user_id", user.ID)
	}
	return c.Token, nil
}

func (s *UserService) enqueueConfirmation(ctx context.Context, user *models.User, token string) error {
	job, err := queue.NewSendWelcomeEmailJob(user.Email, token)
	if err != nil {
		return s.internal(ctx, "build email job", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return s.internal(ctx, "enqueue email job", err, "user_id", user.ID)
	}
	return nil
}

// internal logs err with its detail and returns the generic error.
func (s *UserService) internal(ctx context.Context, op string, err error, args ...any) error {
	s.log.Error(ctx, op+" failed", append([]any{"error", err}, args...)...)
	return fmt.Errorf("%s: %w", op, common.ErrorInternal)
}
