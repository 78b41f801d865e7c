package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/rentdesk/internal/cache"
	"github.com/geocoder89/rentdesk/internal/oauth"
	"github.com/geocoder89/rentdesk/internal/observability"
)

var (
	// ErrInvalidToken means the token is unknown, expired, revoked or malformed.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUnavailable means the token could not be checked at all.
	ErrUnavailable = errors.New("token verification unavailable")
)

// Principal is the identity a bearer token was issued to.
type Principal struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Verifier resolves a raw bearer token to a principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
	// Forget drops anything remembered about token, e.g. after revocation.
	Forget(ctx context.Context, token string)
}

type Introspector interface {
	Introspect(ctx context.Context, token string) (oauth.Introspection, error)
}

// IntrospectionVerifier checks opaque tokens against the authorization
// server and caches active results for at most ttl.
type IntrospectionVerifier struct {
	remote Introspector
	cache  cache.Store
	ttl    time.Duration
	prom   *observability.Prom
	now    func() time.Time
}

func NewIntrospectionVerifier(remote Introspector, store cache.Store, ttl time.Duration, prom *observability.Prom) *IntrospectionVerifier {
	return &IntrospectionVerifier{
		remote: remote,
		cache:  store,
		ttl:    ttl,
		prom:   prom,
		now:    time.Now,
	}
}

func (v *IntrospectionVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	key := tokenKey(token)

	if p, ok := v.lookup(ctx, key); ok {
		return p, nil
	}

	in, err := v.remote.Introspect(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if !in.Active || in.Username == "" {
		return Principal{}, ErrInvalidToken
	}

	p := Principal{Email: in.Username, ExpiresAt: in.ExpiresAt()}
	v.remember(ctx, key, p)

	return p, nil
}

func (v *IntrospectionVerifier) Forget(ctx context.Context, token string) {
	if v.cache == nil {
		return
	}
	_ = v.cache.Delete(ctx, tokenKey(token))
}

func (v *IntrospectionVerifier) lookup(ctx context.Context, key string) (Principal, bool) {
	if v.cache == nil {
		return Principal{}, false
	}

	raw, ok, err := v.cache.Get(ctx, key)
	if err != nil {
		v.prom.ObserveTokenCache("error")
		return Principal{}, false
	}
	if !ok {
		v.prom.ObserveTokenCache("miss")
		return Principal{}, false
	}

	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		v.prom.ObserveTokenCache("error")
		return Principal{}, false
	}

	if !p.ExpiresAt.IsZero() && !v.now().Before(p.ExpiresAt) {
		v.prom.ObserveTokenCache("miss")
		return Principal{}, false
	}

	v.prom.ObserveTokenCache("hit")
	return p, true
}

func (v *IntrospectionVerifier) remember(ctx context.Context, key string, p Principal) {
	if v.cache == nil || v.ttl <= 0 {
		return
	}

	ttl := v.ttl
	if !p.ExpiresAt.IsZero() {
		if left := p.ExpiresAt.Sub(v.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = v.cache.Set(ctx, key, raw, ttl)
}

// tokens are never stored raw
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
