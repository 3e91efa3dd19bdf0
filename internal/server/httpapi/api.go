// Package httpapi is the HTTP front of the auth service: request decoding
// and validation, status-code mapping, the refresh-token cookie, access
// logging and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

const maxBodyBytes = 1 << 20

// AuthService is what the handlers need from services.UserService.
type AuthService interface {
	Signup(ctx context.Context, username, firstName, email, password string) (*models.User, error)
	Signin(ctx context.Context, username, password string) (string, error)
	SigninV2(ctx context.Context, username, password string) (*services.TokenPair, error)
	SendEmailConfirmation(ctx context.Context, userID int64) error
	ConfirmUserEmail(ctx context.Context, token string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// API owns the routes.
type API struct {
	mux        *http.ServeMux
	users      AuthService
	log        logging.Logger
	metrics    *Metrics
	refreshTTL time.Duration
}

// New wires the routes. Metrics are registered on reg and served from it.
func New(users AuthService, log logging.Logger, reg *prometheus.Registry, refreshTTL time.Duration) *API {
	a := &API{
		mux:        http.NewServeMux(),
		users:      users,
		log:        log.With("module", "http"),
		metrics:    NewMetrics(reg),
		refreshTTL: refreshTTL,
	}

	a.mux.HandleFunc("POST /auth/signup", a.Signup)
	a.mux.HandleFunc("POST /auth/signin", a.Signin)
	a.mux.HandleFunc("POST /auth/v2/signin", a.SigninV2)
	a.mux.HandleFunc("POST /auth/send-email-confirmation", a.SendEmailConfirmation)
	a.mux.HandleFunc("POST /auth/confirm-email", a.ConfirmEmail)
	a.mux.HandleFunc("POST /auth/refresh-token", a.RefreshToken)
	a.mux.HandleFunc("GET /auth/me", a.Me)

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return a
}

// Handler returns the mux wrapped in logging and metrics middleware.
func (a *API) Handler() http.Handler {
	return a.Logging(a.metrics.Instrument(a.mux))
}
