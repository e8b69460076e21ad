// Package subject carries the authenticated platform user through request
// contexts. The platform gateway authenticates requests before they reach
// the broker and forwards the user identity in trusted headers; the HTTP
// layer resolves those headers into a Subject and attaches it to the
// request context.
package subject

import "context"

// Subject identifies the authenticated user on whose behalf a broker
// operation runs. Tokens are stored and looked up per subject.
type Subject struct {
	// UserID is the stable platform user identifier.
	UserID string

	// UserName is the human-readable login name. Token lookups fall back
	// to it when no token is stored under the user id.
	UserName string
}

// IsAnonymous reports whether the subject carries no identity.
func (s Subject) IsAnonymous() bool {
	return s.UserID == "" && s.UserName == ""
}

type contextKey struct{}

// WithSubject returns a copy of ctx carrying the given subject.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the subject attached to ctx. The second return
// value is false when the context carries no subject.
func FromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(contextKey{}).(Subject)
	return s, ok
}
