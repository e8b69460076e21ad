// Package server exposes the OAuth broker over HTTP.
//
// Endpoints:
//   - GET /oauth/authenticate starts a flow and redirects to the provider
//   - GET /oauth/callback finishes a flow after the provider redirects back
//   - GET /oauth lists the registered providers with authenticate links
//   - GET /oauth/token returns the stored token for the current subject
//   - DELETE /oauth/token revokes and removes the stored token
//
// The current subject is taken from the X-Che-User-Id and X-Che-User-Name
// headers set by the authenticating gateway in front of the broker.
package server
