package auth

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/copperdesk/copperdesk/pkg/observability"
)

// Validator validates bearer tokens against a session store, with a small
// expirable LRU cache in front. The client polls every few seconds, so
// caching validated sessions briefly removes a store roundtrip per poll
// without letting a revoked session live past the cache TTL.
type Validator struct {
	store   Store
	cache   *lru.LRU[string, Session]
	metrics *observability.Metrics
}

// NewValidator creates a session validator. cacheSize and cacheTTL bound
// the validation cache; metrics may be nil.
func NewValidator(store Store, cacheSize int, cacheTTL time.Duration, metrics *observability.Metrics) *Validator {
	return &Validator{
		store:   store,
		cache:   lru.NewLRU[string, Session](cacheSize, nil, cacheTTL),
		metrics: metrics,
	}
}

// Validate checks a bearer token and returns its session. Returns
// ErrInvalidSession for unknown or expired tokens; other errors indicate
// a store failure.
func (v *Validator) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		v.count("invalid")
		return nil, ErrInvalidSession
	}

	hash := HashToken(token)

	if cached, ok := v.cache.Get(hash); ok {
		// Cache TTL may outlive a short-lived session; re-check expiry.
		if !cached.Expired(time.Now()) {
			v.count("cache_hit")
			return &cached, nil
		}
		v.cache.Remove(hash)
	}

	session, err := v.store.Lookup(ctx, hash)
	if err != nil {
		v.count("error")
		return nil, err
	}
	if session == nil {
		v.count("invalid")
		return nil, ErrInvalidSession
	}

	v.cache.Add(hash, *session)
	v.count("ok")
	return session, nil
}

// Invalidate drops a token from the validation cache.
func (v *Validator) Invalidate(token string) {
	v.cache.Remove(HashToken(token))
}

func (v *Validator) count(result string) {
	if v.metrics != nil {
		v.metrics.SessionValidationsTotal.WithLabelValues(result).Inc()
	}
}
