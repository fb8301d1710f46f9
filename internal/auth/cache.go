// Package auth caches a short-lived bearer token obtained from an external
// authentication endpoint, refreshing it before expiry and dropping it when
// the backend signals an authorization failure.
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lingopool/lingopool/internal/translation"
)

const (
	// DefaultTokenTTL is deliberately shorter than the issuing service's
	// observed ~10 minute validity.
	DefaultTokenTTL = 9 * time.Minute
	// DefaultExpiryMargin is the minimum remaining lifetime for a cached
	// token to still count as valid.
	DefaultExpiryMargin = time.Minute

	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
)

type Config struct {
	// AuthURL is fetched with GET to obtain a fresh token.
	AuthURL string
	// StaticKey, when set, is returned as-is and no token is ever fetched.
	StaticKey string
	// UserAgent is sent on authentication requests when non-empty.
	UserAgent string

	// Policy constants; zero values take the defaults above.
	TokenTTL     time.Duration
	ExpiryMargin time.Duration
	Attempts     int
	RetryDelay   time.Duration
}

// TokenCache holds at most one cached token. The cache mutex also serializes
// refreshes: concurrent callers that observe an expired token go through one
// actual authentication call, the rest read the stored result.
type TokenCache struct {
	cfg    Config
	client *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time
}

func NewTokenCache(cfg Config, client *http.Client) *TokenCache {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.ExpiryMargin <= 0 {
		cfg.ExpiryMargin = DefaultExpiryMargin
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if client == nil {
		client = &http.Client{}
	}
	return &TokenCache{cfg: cfg, client: client, now: time.Now}
}

// Token returns the static key if one is configured, the cached token while
// its remaining lifetime exceeds the expiry margin, and otherwise fetches a
// fresh token from the authentication endpoint.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if c.cfg.StaticKey != "" {
		return c.cfg.StaticKey, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.expiry.Sub(c.now()) > c.cfg.ExpiryMargin {
		return c.token, nil
	}

	token, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = c.now().Add(c.cfg.TokenTTL)
	return token, nil
}

// Invalidate clears the cached token unconditionally. The backend layer calls
// this on an authorization failure so the next Token call re-authenticates.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

// fetch obtains a token with a fixed inter-attempt delay, no backoff growth.
// The error from the final attempt is returned as classified.
func (c *TokenCache) fetch(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.Attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.cfg.RetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		token, err := c.fetchOnce(ctx)
		if err == nil {
			return token, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *TokenCache) fetchOnce(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.AuthURL, nil)
	if err != nil {
		return "", &translation.ConfigurationError{Reason: fmt.Sprintf("invalid auth URL: %v", err)}
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", translation.FromTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &translation.AuthenticationError{
			Reason: fmt.Sprintf("auth endpoint returned HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", translation.FromTransport(err)
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", &translation.AuthenticationError{Reason: "auth endpoint returned an empty token"}
	}
	return token, nil
}
