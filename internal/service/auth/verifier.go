// Package auth verifies bearer tokens issued by the external identity
// provider and extracts the caller identity used by downstream
// authorization checks.
package auth

import (
	"context"
	"errors"
)

// ErrAuthorizationToken is returned for every token failure: missing token,
// unknown key id, signature mismatch, claim mismatch, or expiry. The error
// is deliberately undifferentiated so callers cannot learn which check
// failed; the distinction only appears in server-side logs.
var ErrAuthorizationToken = errors.New("authorization token rejected")

// Identity is the authenticated caller extracted from a verified token.
// It is valid only for the lifetime of one request.
type Identity struct {
	// Subject is the issuer-verified subject id ("sub" claim).
	Subject string

	// Claims holds all verified claims for downstream authorization checks.
	Claims map[string]any
}

// Verifier validates a bearer token and produces the caller identity.
type Verifier interface {
	// Verify checks the token's signature against the issuer's key set and
	// validates the standard claims (issuer, audience, expiry, not-before).
	// Any failure yields ErrAuthorizationToken.
	Verify(ctx context.Context, token string) (*Identity, error)
}
