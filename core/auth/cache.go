package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const jwksPath = "/auth/v1/.well-known/jwks.json"

// KeyCache holds the identity provider's signing-key set, refreshed at most
// once per TTL. It is the only piece of process-wide mutable state.
type KeyCache struct {
	url    string
	ttl    time.Duration
	client *http.Client

	NowFunc func() time.Time // mockable

	mu        sync.Mutex
	keys      []JWK
	expiresAt time.Time
}

func NewKeyCache(platformURL string, ttl time.Duration) *KeyCache {
	return &KeyCache{
		url:     platformURL + jwksPath,
		ttl:     ttl,
		client:  &http.Client{Timeout: 5 * time.Second},
		NowFunc: time.Now,
	}
}

// Get returns the cached key set, refreshing it only when expired.
func (c *KeyCache) Get(ctx context.Context) ([]JWK, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.keys) > 0 && c.NowFunc().Before(c.expiresAt) {
		return c.keys, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	return c.keys, nil
}

// Refresh forces a fetch regardless of expiry.
func (c *KeyCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx)
}

// refresh must be called with c.mu held.
func (c *KeyCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return errors.Wrap(err, "building JWKS request")
	}
	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching JWKS")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("fetching JWKS: status %d", res.StatusCode)
	}

	var set JWKSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return errors.Wrap(err, "decoding JWKS")
	}

	c.keys = set.Keys
	c.expiresAt = c.NowFunc().Add(c.ttl)
	return nil
}
