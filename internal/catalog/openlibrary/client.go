// Package openlibrary looks up books in the Open Library Books API. It is the
// unauthenticated fallback catalog.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"polgen/internal/catalog"
	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/port"
	"polgen/internal/ratelimit"
)

const serviceName = "openlibrary"

// booksMapping maps the api/books?jscmd=data shape.
var booksMapping = catalog.Mapping{
	domain.FieldTitle:            {"title"},
	domain.FieldAuthor:           {"authors.*.name", "by_statement"},
	domain.FieldISBN:             {"identifiers.isbn_13.0", "identifiers.isbn_10.0"},
	domain.FieldOCLCNumber:       {"identifiers.oclc.0"},
	domain.FieldFormat:           {"physical_format"},
	domain.FieldPublisher:        {"publishers.0.name"},
	domain.FieldPublicationYear:  {"publish_date"},
	domain.FieldPublicationPlace: {"publish_places.0.name"},
}

// Client implements port.BibliographicFetcher against Open Library.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	throttle   *ratelimit.Throttle
}

// NewClient creates an Open Library client.
func NewClient(cfg *config.OpenLibraryConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  cfg.UserAgent,
		baseURL:    baseURL,
		throttle:   ratelimit.NewThrottlePerSecond(cfg.RPS),
	}
}

// NewProvider is the catalog.ProviderFactory for Open Library.
func NewProvider(cfg *config.CatalogConfig) (port.BibliographicFetcher, error) {
	return NewClient(&cfg.OpenLibrary), nil
}

func (c *Client) Fetch(ctx context.Context, id domain.Identifier) (*domain.BibliographicRecord, error) {
	var bibkey string
	switch id.Type {
	case domain.IdentifierTypeISBN:
		bibkey = "ISBN:" + id.Value
	case domain.IdentifierTypeOCLC:
		bibkey = "OCLC:" + id.Value
	default:
		return nil, fmt.Errorf("openlibrary.Client.Fetch: unsupported identifier type %q: %w", id.Type, domain.ErrInvalidIdentifier)
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json", c.baseURL, bibkey)
	var res map[string]map[string]interface{}
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}

	doc, ok := res[bibkey]
	if !ok || len(doc) == 0 {
		return nil, fmt.Errorf("openlibrary.Client.Fetch: %s: %w", id, domain.ErrNotFound)
	}

	rec := booksMapping.Apply(serviceName, doc)
	if id.Type == domain.IdentifierTypeISBN && !rec.ISBN.Known {
		rec.Set(domain.FieldISBN, id.Value)
	}
	if id.Type == domain.IdentifierTypeOCLC && !rec.OCLCNumber.Known {
		rec.Set(domain.FieldOCLCNumber, id.Value)
	}
	slog.Debug("openlibrary.Client.Fetch: record mapped", "identifier", id.String(), "unknown", rec.UnknownFields())
	return rec, nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	if err := c.throttle.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NewTransientError(serviceName, 0, fmt.Errorf("calling openlibrary: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusNotFound:
		return fmt.Errorf("openlibrary: %w", domain.ErrNotFound)
	case code == http.StatusTooManyRequests || code >= 500:
		retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		if retryAfter > 0 {
			c.throttle.PauseFor(time.Duration(retryAfter) * time.Second)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.NewTransientError(serviceName, code, fmt.Errorf("unexpected status code: %d", code), retryAfter)
	default:
		return fmt.Errorf("openlibrary: unexpected status code %d: %w", code, domain.ErrNotFound)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return domain.NewTransientError(serviceName, resp.StatusCode, fmt.Errorf("decoding response: %w", err), 0)
	}
	return nil
}

// compile-time check
var _ port.BibliographicFetcher = (*Client)(nil)
