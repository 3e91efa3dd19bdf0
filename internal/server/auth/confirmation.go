package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultConfirmationTTL is how long an email-confirmation token stays valid.
const DefaultConfirmationTTL = time.Hour

// Confirmation is a freshly issued confirmation token. Only TokenID is meant
// to be persisted; Token goes to the user and is never stored.
type Confirmation struct {
	Token     string
	TokenID   string
	UserID    int64
	ExpiresAt time.Time
}

// ConfirmationPayload holds the verified claims of a confirmation token.
type ConfirmationPayload struct {
	TokenID   string
	UserID    int64
	ExpiresAt time.Time
}

// Validation is the outcome of verifying a token whose signature and expiry
// are fine. IsValid is false when required claims are missing or malformed.
type Validation struct {
	IsValid bool
	Payload *ConfirmationPayload
}

// ConfirmationAuthority issues and verifies signed, time-boxed confirmation
// tokens. It keeps no state besides its settings.
type ConfirmationAuthority struct {
	TTL time.Duration
	now func() time.Time
}

// NewConfirmationAuthority returns an authority issuing tokens valid for ttl.
// A non-positive ttl falls back to DefaultConfirmationTTL.
func NewConfirmationAuthority(ttl time.Duration) *ConfirmationAuthority {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	return &ConfirmationAuthority{TTL: ttl, now: time.Now}
}

// IssueToken signs a token with sub=userID, a random jti and exp=now+TTL.
func (a *ConfirmationAuthority) IssueToken(userID int64, secretKey []byte) (*Confirmation, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("%w: signing secret is empty", common.ErrConfiguration)
	}

	tokenID := uuid.NewString()
	expiresAt := a.now().Add(a.TTL).Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        tokenID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(secretKey)
	if err != nil {
		return nil, errors.Join(common.ErrSigningFailure, err)
	}

	return &Confirmation{
		Token:     signed,
		TokenID:   tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies the signature and expiry of token. A token that
// cannot be trusted at all (malformed, badly signed, expired) is an error.
// A trusted token without a jti or with a non-numeric subject returns a
// Validation with IsValid=false and a nil error.
func (a *ConfirmationAuthority) ValidateToken(token string, secretKey []byte) (*Validation, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("%w: signing secret is empty", common.ErrConfiguration)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, hmacKey(secretKey),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	if claims.ID == "" {
		return &Validation{IsValid: false}, nil
	}

	userID, ok := parseSubject(claims.Subject)
	if !ok {
		return &Validation{IsValid: false}, nil
	}

	return &Validation{
		IsValid: true,
		Payload: &ConfirmationPayload{
			TokenID:   claims.ID,
			UserID:    userID,
			ExpiresAt: claims.ExpiresAt.Time,
		},
	}, nil
}
