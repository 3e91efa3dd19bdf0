// Package client talks to the gophauth HTTP API on behalf of authctl.
//
// # Overview
//
// The Client interface mirrors the /auth routes. HTTPClient implements it
// over net/http and JSON.
//
// # Error Handling
//
// Transport failures are reported as ErrUnavailable. Non-2xx replies become
// an *APIError carrying the status code and the server's public message;
// 401 replies also match ErrUnauthorized.
package client
