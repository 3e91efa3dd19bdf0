package common

import "errors"

// Client-facing messages. Infrastructure and configuration failures all
// collapse into MsgTryLater so that no internal detail leaves the process.
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgAlreadyVerified    = "Email already confirmed"
	MsgConfirmationFailed = "Could not confirm the user's email"
	MsgConfirmationStale  = "Email confirmation expired. Please request a new confirmation link."
	MsgInvalidRefresh     = "Invalid or expired refresh token"
	MsgUserNotFound       = "User not found"
	MsgAlreadyTaken       = "Username or email is already taken"
	MsgInvalidInput       = "Invalid input"
	MsgTryLater           = "Something went wrong, please try again later"
)

// PublicMessage maps an error returned by the service layer to a message that
// is safe to show to clients.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrAlreadyVerified):
		return MsgAlreadyVerified
	case errors.Is(err, ErrTokenRevoked):
		return MsgConfirmationStale
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenMismatch):
		return MsgConfirmationFailed
	case errors.Is(err, ErrInvalidRefreshToken):
		return MsgInvalidRefresh
	case errors.Is(err, ErrAlreadyExists):
		return MsgAlreadyTaken
	case errors.Is(err, ErrorNotFound):
		return MsgUserNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrEmptyInput), errors.Is(err, ErrMissingEmail):
		return MsgInvalidInput
	default:
		return MsgTryLater
	}
}
