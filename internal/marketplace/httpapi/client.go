// Package httpapi enriches items from a JSON product-lookup API.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"polgen/internal/catalog"
	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/port"
)

const serviceName = "marketplace"

// Client implements port.MarketplaceEnricher. Lookups are keyed by ISBN;
// other identifiers have no marketplace data.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a product-lookup client.
func NewClient(cfg *config.MarketplaceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type productResponse struct {
	Price     json.Number `json:"price"`
	Currency  string      `json:"currency"`
	CoverURL  string      `json:"cover_url"`
	Available *bool       `json:"available"`
}

func (c *Client) Enrich(ctx context.Context, id domain.Identifier) (*domain.MarketplaceRecord, error) {
	if id.Value == "" {
		return nil, fmt.Errorf("httpapi.Client.Enrich: %w: empty identifier", domain.ErrInvalidIdentifier)
	}
	if id.Type != domain.IdentifierTypeISBN {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(id.Value))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("httpapi.Client.Enrich: lookup failed", "identifier", id.String(), "error", err)
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewAuthError(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	default:
		slog.Warn("httpapi.Client.Enrich: unexpected status", "identifier", id.String(), "status", resp.StatusCode)
		return nil, nil
	}

	var pr productResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		slog.Warn("httpapi.Client.Enrich: malformed response", "identifier", id.String(), "error", err)
		return nil, nil
	}

	return &domain.MarketplaceRecord{
		Source:    serviceName,
		Price:     domain.Known(catalog.NormalizePrice(pr.Price.String())),
		Currency:  domain.Known(strings.ToUpper(pr.Currency)),
		CoverURL:  domain.Known(pr.CoverURL),
		Available: pr.Available,
	}, nil
}

// compile-time check
var _ port.MarketplaceEnricher = (*Client)(nil)
