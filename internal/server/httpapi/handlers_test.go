package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	signupErr  error
	signinErr  error
	confirmErr error
	refreshErr error
	meErr      error
	sendErr    error

	gotRefresh string
	gotUserID  int64
}

func (f *fakeService) Signup(_ context.Context, username, firstName, email, _ string) (*models.User, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.User{ID: 7, Username: username, FirstName: firstName, Email: email}, nil
}

func (f *fakeService) Signin(context.Context, string, string) (string, error) {
	return "access", f.signinErr
}

func (f *fakeService) SigninV2(context.Context, string, string) (*services.TokenPair, error) {
	if f.signinErr != nil {
		return nil, f.signinErr
	}
	return &services.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeService) SendEmailConfirmation(_ context.Context, userID int64) error {
	f.gotUserID = userID
	return f.sendErr
}

func (f *fakeService) ConfirmUserEmail(context.Context, string) error { return f.confirmErr }

func (f *fakeService) RefreshAccessToken(_ context.Context, token string) (*services.TokenPair, error) {
	f.gotRefresh = token
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "access2", RefreshToken: "refresh2"}, nil
}

func (f *fakeService) CurrentUser(context.Context, string) (*models.User, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &models.User{ID: 7, Username: "alice"}, nil
}

func newTestAPI(svc AuthService) http.Handler {
	return New(svc, logging.Nop{}, prometheus.NewRegistry(), time.Hour).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestSignup_Handler(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		errMsg string
	}{
		{"created", `{"username":"alice","firstname":"Alice","email":"alice@x.com","password":"pw"}`, nil, http.StatusCreated, ""},
		{"missing fields", `{"username":"alice"}`, nil, http.StatusBadRequest, common.MsgInvalidInput},
		{"bad email", `{"username":"alice","firstname":"Alice","email":"nope","password":"pw"}`, nil, http.StatusBadRequest, common.MsgInvalidInput},
		{"bad json", `{`, nil, http.StatusBadRequest, common.MsgInvalidInput},
		{"duplicate", `{"username":"alice","firstname":"Alice","email":"alice@x.com","password":"pw"}`, common.ErrAlreadyExists, http.StatusInternalServerError, common.MsgAlreadyTaken},
		{"internal", `{"username":"alice","firstname":"Alice","email":"alice@x.com","password":"pw"}`, common.ErrorInternal, http.StatusInternalServerError, common.MsgTryLater},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestAPI(&fakeService{signupErr: tt.err}), http.MethodPost, "/auth/signup", tt.body)
			require.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, body["error"])
				return
			}
			assert.EqualValues(t, 7, body["id"])
			assert.Equal(t, "Alice", body["firstName"])
			assert.Equal(t, false, body["verifiedEmail"])
		})
	}
}

func TestSignup_ValidationListsFields(t *testing.T) {
	rec := do(t, newTestAPI(&fakeService{}), http.MethodPost, "/auth/signup", `{"username":"alice"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	fields, ok := decodeBody(t, rec)["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.NotContains(t, fields, "username")
}

func TestSigninV2_SetsCookie(t *testing.T) {
	rec := do(t, newTestAPI(&fakeService{}), http.MethodPost, "/auth/v2/signin", `{"username":"a","password":"b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access", decodeBody(t, rec)["token"])

	c := refreshCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "refresh", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/auth", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestSignin_Failure(t *testing.T) {
	rec := do(t, newTestAPI(&fakeService{signinErr: common.ErrInvalidCredentials}), http.MethodPost, "/auth/signin", `{"username":"a","password":"b"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.MsgInvalidCredentials, decodeBody(t, rec)["error"])
	assert.Nil(t, refreshCookie(rec))
}

func TestRefreshToken_Handler(t *testing.T) {
	t.Run("missing cookie", func(t *testing.T) {
		svc := &fakeService{}
		rec := do(t, newTestAPI(svc), http.MethodPost, "/auth/refresh-token", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.gotRefresh)
	})

	t.Run("rotates", func(t *testing.T) {
		svc := &fakeService{}
		rec := do(t, newTestAPI(svc), http.MethodPost, "/auth/refresh-token", "", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "refresh"})
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "refresh", svc.gotRefresh)
		assert.Equal(t, "access2", decodeBody(t, rec)["token"])
		require.NotNil(t, refreshCookie(rec))
		assert.Equal(t, "refresh2", refreshCookie(rec).Value)
	})

	t.Run("rejected", func(t *testing.T) {
		svc := &fakeService{refreshErr: common.ErrInvalidRefreshToken}
		rec := do(t, newTestAPI(svc), http.MethodPost, "/auth/refresh-token", "", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "old"})
		})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, common.MsgInvalidRefresh, decodeBody(t, rec)["error"])
	})
}

func TestSendEmailConfirmation_Handler(t *testing.T) {
	svc := &fakeService{}
	h := newTestAPI(svc)

	rec := do(t, h, http.MethodPost, "/auth/send-email-confirmation", `{"userId":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, MsgConfirmationSent, body["message"])
	assert.NotContains(t, body, "token")
	assert.EqualValues(t, 42, svc.gotUserID)

	rec = do(t, h, http.MethodPost, "/auth/send-email-confirmation", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newTestAPI(&fakeService{sendErr: common.ErrAlreadyVerified}), http.MethodPost, "/auth/send-email-confirmation", `{"userId":42}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.MsgAlreadyVerified, decodeBody(t, rec)["error"])
}

func TestConfirmEmail_Handler(t *testing.T) {
	rec := do(t, newTestAPI(&fakeService{}), http.MethodPost, "/auth/confirm-email", `{"token":"t"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgEmailConfirmed, decodeBody(t, rec)["message"])

	rec = do(t, newTestAPI(&fakeService{confirmErr: common.ErrTokenRevoked}), http.MethodPost, "/auth/confirm-email", `{"token":"t"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.MsgConfirmationStale, decodeBody(t, rec)["error"])
}

func TestMe_Handler(t *testing.T) {
	bearer := func(v string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", v) }
	}

	rec := do(t, newTestAPI(&fakeService{}), http.MethodGet, "/auth/me", "", bearer("Bearer tok"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeBody(t, rec)["username"])

	rec = do(t, newTestAPI(&fakeService{}), http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, newTestAPI(&fakeService{}), http.MethodGet, "/auth/me", "", bearer("Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, newTestAPI(&fakeService{meErr: common.ErrInvalidToken}), http.MethodGet, "/auth/me", "", bearer("Bearer bad"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestAPI(&fakeService{}), http.MethodGet, "/auth/signup", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestAPI(&fakeService{})

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
