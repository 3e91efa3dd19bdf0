package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// MsgEmailConfirmed is the confirm-email success message.
	MsgEmailConfirmed = "Email confirmed successfully"
	// MsgConfirmationSent is the send-email-confirmation success message.
	MsgConfirmationSent = "Confirmation email sent"
)

type userResource struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"firstName"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	VerifiedEmail bool      `json:"verifiedEmail"`
}

func toResource(u *models.User) userResource {
	return userResource{
		ID:            u.ID,
		Username:      u.Username,
		FirstName:     u.FirstName,
		Email:         u.Email,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		VerifiedEmail: u.VerifiedEmail,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (a *API) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.users.Signup(r.Context(), req.Username, req.FirstName, req.Email, req.Password)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResource(u))
}

func (a *API) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !a.decode(w, r, &req) {
		return
	}
	token, err := a.users.Signin(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (a *API) SigninV2(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !a.decode(w, r, &req) {
		return
	}
	pair, err := a.users.SigninV2(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.setRefreshCookie(w, r, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{Token: pair.AccessToken})
}

func (a *API) SendEmailConfirmation(w http.ResponseWriter, r *http.Request) {
	var req sendConfirmationRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.users.SendEmailConfirmation(r.Context(), req.UserID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgConfirmationSent})
}

func (a *API) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req confirmEmailRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.users.ConfirmUserEmail(r.Context(), req.Token); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgEmailConfirmed})
}

func (a *API) RefreshToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: refresh token cookie missing", common.ErrValidation))
		return
	}
	pair, err := a.users.RefreshAccessToken(r.Context(), c.Value)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.setRefreshCookie(w, r, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{Token: pair.AccessToken})
}

// Me returns the user the bearer access token was issued to.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, common.ErrInvalidToken)
		return
	}
	u, err := a.users.CurrentUser(r.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResource(u))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false.
func (a *API) decode(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", common.ErrValidation, err))
		return false
	}
	if err := v.Validate(); err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  common.MsgInvalidInput,
				"fields": fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", common.ErrValidation, err))
		return false
	}
	return true
}

func (a *API) setRefreshCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/auth",
		MaxAge:   int(a.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeServiceError maps service errors to status codes. Bad input is the
// client's fault; every other failure is reported as 500 with a public
// message.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrEmptyInput) {
		status = http.StatusBadRequest
	}
	writeError(w, status, err)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": common.PublicMessage(err)})
}
