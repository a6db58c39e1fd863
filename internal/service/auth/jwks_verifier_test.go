package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlarge-research/opendc-api/internal/config"
)

const (
	testIssuer   = "https://opendc.eu.auth0.com/"
	testAudience = "opendc-api"
	testKid      = "test-key-1"
)

// jwksFixture holds a signing key pair and a fake JWKS endpoint serving its
// public half.
type jwksFixture struct {
	key      *rsa.PrivateKey
	server   *httptest.Server
	fetches  atomic.Int64
	verifier *JWKSVerifier
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &jwksFixture{key: key}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.fetches.Add(1)
		doc := map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": testKid,
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(doc))
	}))
	t.Cleanup(f.server.Close)

	verifier, err := NewJWKSVerifier(config.AuthConfig{
		Issuer:             testIssuer,
		Audience:           testAudience,
		JWKSURL:            f.server.URL,
		KeyCacheTTLMinutes: 15,
	})
	require.NoError(t, err)
	f.verifier = verifier
	return f
}

// signToken produces an RS256 token with sensible defaults; overrides mutate
// the claim set before signing.
func (f *jwksFixture) signToken(t *testing.T, mutate func(claims jwt.MapClaims, token *jwt.Token)) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss": testIssuer,
		"aud": testAudience,
		"sub": "auth0|tester",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	if mutate != nil {
		mutate(claims, token)
	}

	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestNewJWKSVerifierValidation(t *testing.T) {
	t.Parallel()

	_, err := NewJWKSVerifier(config.AuthConfig{Issuer: testIssuer, Audience: testAudience})
	assert.Error(t, err)

	_, err = NewJWKSVerifier(config.AuthConfig{
		Issuer:   testIssuer,
		Audience: testAudience,
		JWKSURL:  "https://example.com/jwks.json",
	})
	assert.NoError(t, err, "TTL defaults when unset")
}

func TestJWKSVerifierAcceptsValidToken(t *testing.T) {
	t.Parallel()
	f := newJWKSFixture(t)

	identity, err := f.verifier.Verify(context.Background(), f.signToken(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "auth0|tester", identity.Subject)
	assert.Equal(t, testIssuer, identity.Claims["iss"])
}

func TestJWKSVerifierRejections(t *testing.T) {
	t.Parallel()

	// Every rejection must collapse to the same sentinel so callers cannot
	// distinguish failure causes.
	tests := []struct {
		name  string
		token func(t *testing.T, f *jwksFixture) string
	}{
		{
			name:  "empty token",
			token: func(t *testing.T, f *jwksFixture) string { return "" },
		},
		{
			name:  "garbage token",
			token: func(t *testing.T, f *jwksFixture) string { return "not.a.jwt" },
		},
		{
			name: "expired token",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					claims["exp"] = time.Now().Add(-time.Hour).Unix()
				})
			},
		},
		{
			name: "missing expiry claim",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					delete(claims, "exp")
				})
			},
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					claims["iss"] = "https://evil.example.com/"
				})
			},
		},
		{
			name: "wrong audience",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					claims["aud"] = "other-api"
				})
			},
		},
		{
			name: "missing subject",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					delete(claims, "sub")
				})
			},
		},
		{
			name: "unknown kid",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					token.Header["kid"] = "rotated-away"
				})
			},
		},
		{
			name: "missing kid",
			token: func(t *testing.T, f *jwksFixture) string {
				return f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
					delete(token.Header, "kid")
				})
			},
		},
		{
			name: "signed by a different key",
			token: func(t *testing.T, f *jwksFixture) string {
				other, err := rsa.GenerateKey(rand.Reader, 2048)
				require.NoError(t, err)
				token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
					"iss": testIssuer,
					"aud": testAudience,
					"sub": "auth0|tester",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				token.Header["kid"] = testKid
				signed, err := token.SignedString(other)
				require.NoError(t, err)
				return signed
			},
		},
		{
			name: "alg none",
			token: func(t *testing.T, f *jwksFixture) string {
				token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
					"iss": testIssuer,
					"aud": testAudience,
					"sub": "auth0|tester",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				token.Header["kid"] = testKid
				signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return signed
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newJWKSFixture(t)

			identity, err := f.verifier.Verify(context.Background(), tc.token(t, f))
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, ErrAuthorizationToken)
		})
	}
}

func TestJWKSVerifierCachesKeySet(t *testing.T) {
	t.Parallel()
	f := newJWKSFixture(t)

	for i := 0; i < 5; i++ {
		_, err := f.verifier.Verify(context.Background(), f.signToken(t, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), f.fetches.Load(), "fresh cache must serve repeat verifications")
}

func TestJWKSVerifierRefreshesExpiredCache(t *testing.T) {
	t.Parallel()
	f := newJWKSFixture(t)

	now := time.Now()
	f.verifier.timeFunc = func() time.Time { return now }

	_, err := f.verifier.Verify(context.Background(), f.signToken(t, nil))
	require.NoError(t, err)
	require.Equal(t, int64(1), f.fetches.Load())

	// Advance past the TTL; token expiry checks use the same clock, so keep
	// the token fresh relative to it.
	now = now.Add(16 * time.Minute)
	_, err = f.verifier.Verify(context.Background(), f.signToken(t, func(claims jwt.MapClaims, token *jwt.Token) {
		claims["exp"] = now.Add(time.Hour).Unix()
		claims["iat"] = now.Unix()
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.fetches.Load())
}

func TestJWKSVerifierUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	verifier, err := NewJWKSVerifier(config.AuthConfig{
		Issuer:             testIssuer,
		Audience:           testAudience,
		JWKSURL:            "http://127.0.0.1:1/jwks.json",
		KeyCacheTTLMinutes: 15,
	})
	require.NoError(t, err)

	f := newJWKSFixture(t)
	_, err = verifier.Verify(context.Background(), f.signToken(t, nil))
	assert.ErrorIs(t, err, ErrAuthorizationToken)
}

func TestParseKeySet(t *testing.T) {
	t.Parallel()

	t.Run("skips non-signature keys", func(t *testing.T) {
		t.Parallel()
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		doc, err := json.Marshal(map[string]any{
			"keys": []map[string]any{
				{
					"kty": "RSA",
					"kid": "good",
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
				},
				{"kty": "EC", "kid": "ec-key"},
				{
					"kty": "RSA",
					"kid": "enc-key",
					"use": "enc",
					"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
				},
			},
		})
		require.NoError(t, err)

		keys, err := parseKeySet(doc)
		require.NoError(t, err)
		assert.Len(t, keys, 1)
		assert.Contains(t, keys, "good")
	})

	t.Run("empty key set is an error", func(t *testing.T) {
		t.Parallel()
		_, err := parseKeySet([]byte(`{"keys":[{"kty":"EC","kid":"only-ec"}]}`))
		assert.Error(t, err)
	})

	t.Run("malformed document is an error", func(t *testing.T) {
		t.Parallel()
		_, err := parseKeySet([]byte(`{`))
		assert.Error(t, err)
	})
}
