package auth

import "context"

// MockVerifier is a mock implementation of the Verifier interface for
// testing. This is the single canonical mock to be used in all tests.
type MockVerifier struct {
	// VerifyFunc overrides Verify when set.
	VerifyFunc func(ctx context.Context, token string) (*Identity, error)

	// Fixed fields for simple cases
	Identity *Identity // Default identity to return
	Err      error     // Default error to return
}

// Ensure MockVerifier implements the Verifier interface
var _ Verifier = (*MockVerifier)(nil)

// NewMockVerifier creates a mock verifier that accepts any non-empty token
// as the given subject.
func NewMockVerifier(subject string) *MockVerifier {
	return &MockVerifier{
		Identity: &Identity{
			Subject: subject,
			Claims:  map[string]any{"sub": subject},
		},
	}
}

// Verify implements the Verifier.Verify method.
func (m *MockVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	if token == "" {
		return nil, ErrAuthorizationToken
	}
	return m.Identity, m.Err
}
