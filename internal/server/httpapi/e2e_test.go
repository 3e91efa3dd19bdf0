package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/queue"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newE2E runs the real UserService (argon2 included) over in-memory
// repositories. SQLite only provides transaction plumbing.
func newE2E(t *testing.T) (http.Handler, *queue.MemoryQueue) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		SecretKey:                         "e2e-secret",
		AccessTokenValidityDuration:       time.Hour,
		RefreshTokenValidityDuration:      time.Hour,
		ConfirmationTokenValidityDuration: time.Hour,
	}
	q := queue.NewMemoryQueue(8)
	svc := services.NewUserService(db, memory.NewManager(), q, cfg, logging.Nop{})
	return newTestAPI(svc), q
}

func TestE2E_SigninV2NoEnumeration(t *testing.T) {
	h, _ := newE2E(t)

	rec := do(t, h, http.MethodPost, "/auth/signup", `{"username":"alice","firstname":"Alice","email":"alice@x.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/v2/signin", `{"username":"alice","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["token"])
	first := refreshCookie(rec)
	require.NotNil(t, first)

	wrongPw := do(t, h, http.MethodPost, "/auth/v2/signin", `{"username":"alice","password":"nope"}`)
	noUser := do(t, h, http.MethodPost, "/auth/v2/signin", `{"username":"bob","password":"nope"}`)
	assert.Equal(t, wrongPw.Code, noUser.Code)
	assert.Equal(t, wrongPw.Body.String(), noUser.Body.String())
	assert.Equal(t, common.MsgInvalidCredentials, decodeBody(t, noUser)["error"])
	assert.Nil(t, refreshCookie(wrongPw))

	// Rotation: the first cookie works once.
	withCookie := func(v string) func(*http.Request) {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: v}) }
	}
	rec = do(t, h, http.MethodPost, "/auth/refresh-token", "", withCookie(first.Value))
	require.Equal(t, http.StatusOK, rec.Code)
	second := refreshCookie(rec)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	rec = do(t, h, http.MethodPost, "/auth/refresh-token", "", withCookie(first.Value))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.MsgInvalidRefresh, decodeBody(t, rec)["error"])
}

func TestE2E_ConfirmEmailAndMe(t *testing.T) {
	h, q := newE2E(t)

	rec := do(t, h, http.MethodPost, "/auth/signup", `{"username":"carol","firstname":"Carol","email":"carol@x.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, q.Len())

	rec = do(t, h, http.MethodPost, "/auth/send-email-confirmation", `{"userId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decodeBody(t, rec), "token")
	require.Equal(t, 2, q.Len())

	// The resent email carries the only live token.
	_, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	var p queue.EmailPayload
	require.NoError(t, json.Unmarshal(job.Data, &p))
	assert.Equal(t, "carol@x.com", p.Email)
	token := p.Token

	rec = do(t, h, http.MethodPost, "/auth/confirm-email", `{"token":"`+token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/confirm-email", `{"token":"`+token+`"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/signin", `{"username":"carol","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := decodeBody(t, rec)["token"].(string)

	rec = do(t, h, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "carol", me["username"])
	assert.Equal(t, true, me["verifiedEmail"])
}
