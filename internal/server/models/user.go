// Package models defines the server-side entities persisted in the database.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

var defaultHasher auth.PasswordHasher = auth.NewArgon2idHasher()

// User is an account. ID is zero until the row is inserted. The password
// hash is private: it changes only through SetPassword, and repositories
// restore it with RestorePasswordHash.
type User struct {
	ID            int64
	Username      string
	FirstName     string
	Email         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	VerifiedEmail bool

	passwordHash string
	hasher       auth.PasswordHasher
}

// NewUser returns an unsaved user without a password.
func NewUser(username, firstName, email string, hasher auth.PasswordHasher) *User {
	return &User{
		Username:  username,
		FirstName: firstName,
		Email:     email,
		hasher:    hasher,
	}
}

// SetHasher replaces the hasher used by the password methods.
func (u *User) SetHasher(h auth.PasswordHasher) { u.hasher = h }

// PasswordHash returns the stored hash, or "" when none is set.
func (u *User) PasswordHash() string { return u.passwordHash }

// RestorePasswordHash loads an already-hashed value read from storage.
func (u *User) RestorePasswordHash(hash string) { u.passwordHash = hash }

func (u *User) passwordHasher() auth.PasswordHasher {
	if u.hasher != nil {
		return u.hasher
	}
	return defaultHasher
}

// HashPassword hashes plaintext without storing it.
func (u *User) HashPassword(plaintext string) (string, error) {
	hash, err := u.passwordHasher().Hash(plaintext)
	if err != nil {
		if errors.Is(err, common.ErrEmptyInput) || errors.Is(err, common.ErrHashingFailure) {
			return "", err
		}
		return "", errors.Join(common.ErrHashingFailure, err)
	}
	return hash, nil
}

// SetPassword hashes plaintext and stores the result. On failure the current
// hash is left as it was.
func (u *User) SetPassword(plaintext string) error {
	hash, err := u.HashPassword(plaintext)
	if err != nil {
		return err
	}
	u.passwordHash = hash
	return nil
}

// ValidatePassword reports whether plaintext matches the stored hash. A user
// without a password never matches.
func (u *User) ValidatePassword(plaintext string) (bool, error) {
	if u.passwordHash == "" {
		return false, nil
	}
	return u.passwordHasher().Validate(plaintext, u.passwordHash)
}

// IssueJWT signs a one-hour access token for the user.
func (u *User) IssueJWT(secret []byte) (string, error) {
	return u.IssueJWTWithTTL(secret, auth.DefaultAccessTokenTTL)
}

// IssueJWTWithTTL signs an access token valid for ttl.
func (u *User) IssueJWTWithTTL(secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: signing secret is empty", common.ErrConfiguration)
	}
	if u.ID <= 0 {
		return "", fmt.Errorf("%w: user is not persisted", common.ErrorInternal)
	}
	return auth.GenerateToken(strconv.FormatInt(u.ID, 10), secret, ttl)
}

// IssueRefreshToken returns 32 random bytes, hex-encoded.
func (u *User) IssueRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

// GenerateConfirmationToken issues an email-confirmation token whose subject
// is the user ID. Users without an email cannot be confirmed.
func (u *User) GenerateConfirmationToken(authority *auth.ConfirmationAuthority, secret []byte) (*auth.Confirmation, error) {
	if u.Email == "" {
		return nil, common.ErrMissingEmail
	}
	return authority.IssueToken(u.ID, secret)
}
