package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var confirmSecret = []byte("confirm-secret")

func TestIssueAndValidate(t *testing.T) {
	a := NewConfirmationAuthority(0)
	assert.Equal(t, DefaultConfirmationTTL, a.TTL)

	c, err := a.IssueToken(10, confirmSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.UserID)
	assert.NotEmpty(t, c.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt, 2*time.Second)

	v, err := a.ValidateToken(c.Token, confirmSecret)
	require.NoError(t, err)
	require.True(t, v.IsValid)
	assert.Equal(t, c.TokenID, v.Payload.TokenID)
	assert.Equal(t, int64(10), v.Payload.UserID)
	assert.True(t, c.ExpiresAt.Equal(v.Payload.ExpiresAt))
}

func TestIssueToken_DistinctPerUser(t *testing.T) {
	a := NewConfirmationAuthority(time.Hour)

	c1, err := a.IssueToken(1, confirmSecret)
	require.NoError(t, err)
	c2, err := a.IssueToken(2, confirmSecret)
	require.NoError(t, err)

	assert.NotEqual(t, c1.TokenID, c2.TokenID)
	assert.NotEqual(t, c1.Token, c2.Token)

	v1, err := a.ValidateToken(c1.Token, confirmSecret)
	require.NoError(t, err)
	v2, err := a.ValidateToken(c2.Token, confirmSecret)
	require.NoError(t, err)
	assert.NotEqual(t, v1.Payload.UserID, v2.Payload.UserID)
}

func TestIssueToken_EmptySecret(t *testing.T) {
	_, err := NewConfirmationAuthority(time.Hour).IssueToken(1, nil)
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestValidateToken_MissingJTI(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(confirmSecret)
	require.NoError(t, err)

	v, err := NewConfirmationAuthority(time.Hour).ValidateToken(tok, confirmSecret)
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Nil(t, v.Payload)
}

func TestValidateToken_SubjectNotAUserID(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice@example.com",
		ID:        "jti-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(confirmSecret)
	require.NoError(t, err)

	v, err := NewConfirmationAuthority(time.Hour).ValidateToken(tok, confirmSecret)
	require.NoError(t, err)
	assert.False(t, v.IsValid)
}

func TestValidateToken_Failures(t *testing.T) {
	a := NewConfirmationAuthority(time.Hour)

	past := &ConfirmationAuthority{TTL: time.Hour, now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
	expired, err := past.IssueToken(1, confirmSecret)
	require.NoError(t, err)

	good, err := a.IssueToken(1, confirmSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "1",
		ID:      "jti",
	}).SignedString(confirmSecret)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  []byte
		wantErr error
	}{
		{name: "malformed", token: "definitely-not-a-jwt", secret: confirmSecret, wantErr: common.ErrInvalidToken},
		{name: "wrong secret", token: good.Token, secret: []byte("other"), wantErr: common.ErrInvalidToken},
		{name: "expired", token: expired.Token, secret: confirmSecret, wantErr: common.ErrTokenExpired},
		{name: "no expiry", token: noExp, secret: confirmSecret, wantErr: common.ErrInvalidToken},
		{name: "empty secret", token: good.Token, secret: nil, wantErr: common.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := a.ValidateToken(tt.token, tt.secret)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, v)
		})
	}
}
