// Package marketplace selects the supplementary commerce data source.
package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/marketplace/amazoncsv"
	"polgen/internal/marketplace/httpapi"
	"polgen/internal/port"
)

// Noop never has marketplace data.
type Noop struct{}

func (Noop) Enrich(_ context.Context, id domain.Identifier) (*domain.MarketplaceRecord, error) {
	if id.Value == "" {
		return nil, fmt.Errorf("marketplace.Noop.Enrich: %w: empty identifier", domain.ErrInvalidIdentifier)
	}
	return nil, nil
}

// New creates the enricher named by cfg.Provider: "http", "amazon_csv" or
// "none".
func New(cfg *config.MarketplaceConfig) (port.MarketplaceEnricher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none", "noop":
		return Noop{}, nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("marketplace: base_url is required for the http provider")
		}
		return httpapi.NewClient(cfg), nil
	case "amazon_csv", "amazoncsv":
		if cfg.CSVPath == "" {
			return nil, fmt.Errorf("marketplace: csv_path is required for the amazon_csv provider")
		}
		idx, err := amazoncsv.LoadIndex(cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("marketplace: %w", err)
		}
		slog.Info("marketplace.New: amazon order index loaded", "path", cfg.CSVPath, "isbns", idx.Len())
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown marketplace provider: %s", cfg.Provider)
	}
}
