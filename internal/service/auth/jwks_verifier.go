package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atlarge-research/opendc-api/internal/config"
	"github.com/atlarge-research/opendc-api/internal/platform/logger"
)

// keyCache is one immutable snapshot of the issuer's signing keys. Readers
// load the current snapshot atomically, so a slow refresh never blocks
// concurrent verification against the previous snapshot.
type keyCache struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// JWKSVerifier verifies RS256 bearer tokens against the identity provider's
// published key set. The key set is cached process-wide with a bounded TTL
// and refreshed lazily on expiry or on an unknown key id, once per call.
type JWKSVerifier struct {
	issuer   string
	audience string
	jwksURL  string
	ttl      time.Duration

	client   *http.Client
	timeFunc func() time.Time // Injectable for testing

	cache     atomic.Pointer[keyCache]
	refreshMu sync.Mutex
}

// Ensure JWKSVerifier implements the Verifier interface
var _ Verifier = (*JWKSVerifier)(nil)

// NewJWKSVerifier creates a verifier for the configured issuer, audience and
// JWKS endpoint. No keys are fetched until the first verification needs
// them.
func NewJWKSVerifier(cfg config.AuthConfig) (*JWKSVerifier, error) {
	if cfg.Issuer == "" || cfg.Audience == "" || cfg.JWKSURL == "" {
		return nil, fmt.Errorf("auth configuration requires issuer, audience and JWKS URL")
	}

	ttl := time.Duration(cfg.KeyCacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &JWKSVerifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		jwksURL:  cfg.JWKSURL,
		ttl:      ttl,
		client:   &http.Client{Timeout: 10 * time.Second},
		timeFunc: time.Now,
	}, nil
}

// Verify implements Verifier. Every failure collapses to
// ErrAuthorizationToken; the underlying cause is only logged.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	log := logger.FromContext(ctx)

	if token == "" {
		log.Debug("token verification failed: no token supplied")
		return nil, ErrAuthorizationToken
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		v.keyFunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.timeFunc),
	)
	if err != nil || !parsed.Valid {
		log.Debug("token verification failed", "error", err)
		return nil, ErrAuthorizationToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		log.Debug("token verification failed: missing subject claim")
		return nil, ErrAuthorizationToken
	}

	return &Identity{
		Subject: subject,
		Claims:  map[string]any(claims),
	}, nil
}

// keyFunc resolves the token's signing key by key id from the cached set.
func (v *JWKSVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token header missing key id")
		}
		return v.keyForKid(ctx, kid)
	}
}

// keyForKid returns the public key for the given key id, refreshing the
// cached key set at most once when the cache is stale or the kid is
// unknown. A fetch failure rejects the token rather than crashing the
// pipeline.
func (v *JWKSVerifier) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if cached := v.cache.Load(); cached != nil && v.timeFunc().Sub(cached.fetchedAt) < v.ttl {
		if key, ok := cached.keys[kid]; ok {
			return key, nil
		}
		// Unknown kid in a fresh cache: the provider may have rotated keys,
		// so fall through to a single refresh.
	}

	cached, err := v.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := cached.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

// refresh fetches a new key set snapshot. Concurrent refreshers queue on a
// mutex and reuse a snapshot another goroutine just fetched; readers keep
// serving the previous snapshot in the meantime.
func (v *JWKSVerifier) refresh(ctx context.Context) (*keyCache, error) {
	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()

	if cached := v.cache.Load(); cached != nil && v.timeFunc().Sub(cached.fetchedAt) < time.Second {
		return cached, nil
	}

	keys, err := fetchKeySet(ctx, v.client, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh signing keys: %w", err)
	}

	cached := &keyCache{keys: keys, fetchedAt: v.timeFunc()}
	v.cache.Store(cached)
	return cached, nil
}
