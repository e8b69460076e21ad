// Package oauth implements the OAuth redirect/callback broker.
//
// The broker is pure orchestration: it looks up a registered authenticator
// by provider name, builds the authorization URL, threads the request
// parameters through the round-tripped OAuth state parameter, and maps
// provider errors to redirects. The provider-specific protocol work is
// done by the Authenticator implementations (OAuth1 and OAuth2), and token
// persistence by the token.Manager backends.
//
// # Flow
//
//  1. Authenticate seals provider name, scopes, post-login redirect, and
//     the current subject into the state parameter and redirects the user
//     to the provider authorization URL.
//  2. The provider redirects back to the broker callback. Callback
//     validates the state, dispatches to the provider authenticator for
//     the token exchange, persists the token for the subject, and sends
//     the user to the post-login redirect.
//  3. Token and InvalidateToken serve stored tokens per subject, looking
//     up by user id with a username fallback.
//
// The state parameter is the only carrier of per-flow data. The broker
// keeps no mutable per-request fields, so one instance serves concurrent
// authentication flows without cross-request interference; the state
// store tracks only issued nonces for CSRF and replay protection.
package oauth
