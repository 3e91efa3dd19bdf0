// Package cli implements authctl, a command-line client for the gophauth
// HTTP API.
//
// Commands:
//   - signup, signin (with --v2 for a refresh token)
//   - send-confirmation, confirm
//   - refresh, me
//
// Passwords not given with --password are read from the terminal without
// echo.
package cli
