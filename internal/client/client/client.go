package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/netx"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoCookie     = errors.New("server did not set a refresh token cookie")
)

// RefreshCookieName must match the server's cookie.
const RefreshCookieName = "refreshToken"

// APIError is a non-2xx reply.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// User is the user resource returned by signup and /auth/me.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"firstName"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	VerifiedEmail bool      `json:"verifiedEmail"`
}

// Session is an access token plus, for v2 signin and refresh, the refresh
// token taken from the cookie.
type Session struct {
	AccessToken  string
	RefreshToken string
}

type Client interface {
	Signup(ctx context.Context, username, firstName, email, password string) (*User, error)
	Signin(ctx context.Context, username, password string) (string, error)
	SigninV2(ctx context.Context, username, password string) (*Session, error)
	SendEmailConfirmation(ctx context.Context, userID int64) (string, error)
	ConfirmEmail(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Me(ctx context.Context, accessToken string) (*User, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type tokenReply struct {
	Token string `json:"token"`
}

type messageReply struct {
	Message string `json:"message"`
}

func (c *HTTPClient) Signup(ctx context.Context, username, firstName, email, password string) (*User, error) {
	req := map[string]string{"username": username, "firstname": firstName, "email": email, "password": password}
	u := &User{}
	if _, err := c.post(ctx, "/auth/signup", nil, req, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *HTTPClient) Signin(ctx context.Context, username, password string) (string, error) {
	var out tokenReply
	if _, err := c.post(ctx, "/auth/signin", nil, map[string]string{"username": username, "password": password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *HTTPClient) SigninV2(ctx context.Context, username, password string) (*Session, error) {
	var out tokenReply
	resp, err := c.post(ctx, "/auth/v2/signin", nil, map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return sessionFrom(resp, out.Token)
}

// SendEmailConfirmation asks the server to mail a new confirmation link and
// returns its message.
func (c *HTTPClient) SendEmailConfirmation(ctx context.Context, userID int64) (string, error) {
	var out messageReply
	if _, err := c.post(ctx, "/auth/send-email-confirmation", nil, map[string]int64{"userId": userID}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *HTTPClient) ConfirmEmail(ctx context.Context, token string) (string, error) {
	var out messageReply
	if _, err := c.post(ctx, "/auth/confirm-email", nil, map[string]string{"token": token}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	cookie := (&http.Cookie{Name: RefreshCookieName, Value: refreshToken}).String()
	var out tokenReply
	resp, err := c.post(ctx, "/auth/refresh-token", http.Header{"Cookie": {cookie}}, struct{}{}, &out)
	if err != nil {
		return nil, err
	}
	return sessionFrom(resp, out.Token)
}

func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*User, error) {
	u := &User{}
	_, err := netx.DoJSON(ctx, c.http, http.MethodGet, c.baseURL+"/auth/me",
		http.Header{"Authorization": {"Bearer " + accessToken}}, nil, u)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, header http.Header, body, out any) (*http.Response, error) {
	resp, err := netx.PostJSON(ctx, c.http, c.baseURL+path, header, body, out)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func sessionFrom(resp *http.Response, access string) (*Session, error) {
	for _, ck := range resp.Cookies() {
		if ck.Name == RefreshCookieName && ck.Value != "" {
			return &Session{AccessToken: access, RefreshToken: ck.Value}, nil
		}
	}
	return nil, ErrNoCookie
}

func mapError(err error) error {
	var se *netx.StatusError
	if errors.As(err, &se) {
		var body struct {
			Error string `json:"error"`
		}
		msg := se.Status
		if json.Unmarshal([]byte(se.Body), &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &APIError{StatusCode: se.StatusCode, Message: msg}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
