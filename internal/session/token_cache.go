// Package session owns the OAuth2 access token shared by all workers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"polgen/internal/domain"
)

// FetchFunc obtains a fresh token from the authorization server.
type FetchFunc func(ctx context.Context) (*oauth2.Token, error)

// TokenCache hands out a cached access token and refreshes it when it expires.
// Refresh happens under the cache mutex, so concurrent callers wait for a
// single refresh instead of racing.
type TokenCache struct {
	service string
	fetch   FetchFunc

	mu        sync.Mutex
	token     *oauth2.Token
	refreshes int
}

// NewTokenCache creates a TokenCache around fetch.
func NewTokenCache(service string, fetch FetchFunc) *TokenCache {
	return &TokenCache{service: service, fetch: fetch}
}

// NewClientCredentials creates a TokenCache using the OAuth2 client
// credentials grant. httpClient may be nil.
func NewClientCredentials(service string, cfg *clientcredentials.Config, httpClient *http.Client) *TokenCache {
	return NewTokenCache(service, func(ctx context.Context) (*oauth2.Token, error) {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		return cfg.Token(ctx)
	})
}

// AccessToken returns a valid access token, refreshing if needed.
func (c *TokenCache) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}

	tok, err := c.fetch(ctx)
	if err != nil {
		return "", c.classify(err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", domain.NewAuthError(c.service, errors.New("token endpoint returned no access token"))
	}
	c.token = tok
	c.refreshes++
	slog.Debug("session.TokenCache: token refreshed", "service", c.service, "expiry", tok.Expiry)
	return tok.AccessToken, nil
}

// Invalidate drops the cached token if it is still stale. A worker that saw a
// 401 with an old token must not discard a newer one fetched by another worker.
func (c *TokenCache) Invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.AccessToken == stale {
		c.token = nil
	}
}

// Refreshes returns how many times a token has been fetched.
func (c *TokenCache) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

func (c *TokenCache) classify(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		switch code := rErr.Response.StatusCode; {
		case code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden:
			return domain.NewAuthError(c.service, err)
		case code == http.StatusTooManyRequests || code >= 500:
			retryAfter := domain.ParseRetryAfterHeader(rErr.Response.Header.Get("Retry-After"))
			return domain.NewTransientError(c.service, code, err, retryAfter)
		default:
			return domain.NewAuthError(c.service, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewTransientError(c.service, 0, fmt.Errorf("fetching token: %w", err), 0)
}
