// Package worldcat fetches brief bibliographic records from the OCLC WorldCat
// Metadata API.
package worldcat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/port"
	"polgen/internal/ratelimit"
	"polgen/internal/session"
)

const serviceName = "worldcat"

// TokenSource hands out bearer tokens. *session.TokenCache implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate(stale string)
}

// Client implements port.BibliographicFetcher against the WorldCat brief-bibs
// endpoints.
type Client struct {
	baseURL  string
	tokens   TokenSource
	throttle *ratelimit.Throttle
	client   *http.Client
}

// NewClient creates a WorldCat client. The token source and throttle are
// shared with every worker in the run.
func NewClient(cfg *config.WorldCatConfig, tokens TokenSource, throttle *ratelimit.Throttle) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if throttle == nil {
		throttle = ratelimit.NewThrottle(0)
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		tokens:   tokens,
		throttle: throttle,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewProvider is the catalog.ProviderFactory for WorldCat. It wires the OAuth2
// client-credentials token cache and the inter-request throttle.
func NewProvider(cfg *config.CatalogConfig) (port.BibliographicFetcher, error) {
	wc := cfg.WorldCat
	if wc.ClientID == "" || wc.ClientSecret == "" {
		return nil, errors.New("worldcat: client_id and client_secret are required")
	}
	cc := &clientcredentials.Config{
		ClientID:     wc.ClientID,
		ClientSecret: wc.ClientSecret,
		TokenURL:     wc.TokenURL,
		Scopes:       []string{wc.Scope},
	}
	tokens := session.NewClientCredentials(serviceName, cc, nil)
	throttle := ratelimit.NewThrottle(time.Duration(wc.MinIntervalMS) * time.Millisecond)
	return NewClient(&wc, tokens, throttle), nil
}

// searchResponse is the envelope of brief-bibs search results.
type searchResponse struct {
	NumberOfRecords int                      `json:"numberOfRecords"`
	BriefRecords    []map[string]interface{} `json:"briefRecords"`
}

func (c *Client) Fetch(ctx context.Context, id domain.Identifier) (*domain.BibliographicRecord, error) {
	var doc map[string]interface{}

	switch id.Type {
	case domain.IdentifierTypeOCLC:
		body, err := c.get(ctx, fmt.Sprintf("%s/worldcat/search/brief-bibs/%s", c.baseURL, url.PathEscape(id.Value)))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, domain.NewTransientError(serviceName, http.StatusOK, fmt.Errorf("decoding brief bib: %w", err), 0)
		}
	case domain.IdentifierTypeISBN:
		q := url.Values{}
		q.Set("q", "bn:"+id.Value)
		q.Set("limit", "1")
		body, err := c.get(ctx, fmt.Sprintf("%s/worldcat/search/brief-bibs?%s", c.baseURL, q.Encode()))
		if err != nil {
			return nil, err
		}
		var sr searchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return nil, domain.NewTransientError(serviceName, http.StatusOK, fmt.Errorf("decoding search response: %w", err), 0)
		}
		if len(sr.BriefRecords) == 0 {
			return nil, fmt.Errorf("worldcat.Client.Fetch: %s: %w", id, domain.ErrNotFound)
		}
		doc = sr.BriefRecords[0]
	default:
		return nil, fmt.Errorf("worldcat.Client.Fetch: unsupported identifier type %q: %w", id.Type, domain.ErrInvalidIdentifier)
	}

	if len(doc) == 0 {
		return nil, fmt.Errorf("worldcat.Client.Fetch: %s: %w", id, domain.ErrNotFound)
	}

	format, _ := doc["generalFormat"].(string)
	rec := MappingFor(format).Apply(serviceName, doc)
	switch id.Type {
	case domain.IdentifierTypeOCLC:
		if !rec.OCLCNumber.Known {
			rec.Set(domain.FieldOCLCNumber, id.Value)
		}
	case domain.IdentifierTypeISBN:
		if !rec.ISBN.Known {
			rec.Set(domain.FieldISBN, id.Value)
		}
	}

	slog.Debug("worldcat.Client.Fetch: record mapped", "identifier", id.String(), "format", format, "unknown", rec.UnknownFields())
	return rec, nil
}

// get performs an authenticated GET. A 401 drops the token and retries once
// with a fresh one before giving up with an AuthError.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, domain.NewTransientError(serviceName, 0, fmt.Errorf("calling worldcat API: %w", err), 0)
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch code := resp.StatusCode; {
		case code == http.StatusOK:
			if readErr != nil {
				return nil, domain.NewTransientError(serviceName, code, fmt.Errorf("reading response: %w", readErr), 0)
			}
			return body, nil
		case code == http.StatusUnauthorized:
			c.tokens.Invalidate(token)
			if attempt == 0 {
				slog.Debug("worldcat.Client: token rejected, refreshing")
				continue
			}
			return nil, domain.NewAuthError(serviceName, fmt.Errorf("status %d: %s", code, truncate(body)))
		case code == http.StatusForbidden:
			return nil, domain.NewAuthError(serviceName, fmt.Errorf("status %d: %s", code, truncate(body)))
		case code == http.StatusNotFound:
			return nil, fmt.Errorf("worldcat: %w", domain.ErrNotFound)
		case code == http.StatusTooManyRequests || code >= 500:
			retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			if retryAfter > 0 {
				c.throttle.PauseFor(time.Duration(retryAfter) * time.Second)
			}
			return nil, domain.NewTransientError(serviceName, code, fmt.Errorf("status %d: %s", code, truncate(body)), retryAfter)
		default:
			// A malformed query cannot match anything.
			return nil, fmt.Errorf("worldcat: status %d: %s: %w", code, truncate(body), domain.ErrNotFound)
		}
	}
}

func truncate(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// compile-time check
var _ port.BibliographicFetcher = (*Client)(nil)
