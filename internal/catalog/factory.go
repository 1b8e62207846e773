package catalog

import (
	"fmt"
	"strings"

	"polgen/internal/config"
	"polgen/internal/port"
)

// ProviderFactory creates a BibliographicFetcher from the catalog config.
type ProviderFactory func(cfg *config.CatalogConfig) (port.BibliographicFetcher, error)

// registry of catalog provider factories, populated explicitly via
// RegisterProvider during wiring.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a catalog provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[strings.ToLower(name)] = factory
}

// NewProvider creates a single BibliographicFetcher by provider name.
func NewProvider(name string, cfg *config.CatalogConfig) (port.BibliographicFetcher, error) {
	factory, ok := providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown catalog provider: %s", name)
	}
	return factory(cfg)
}

// NewFetcher builds the fetcher chain named by cfg.Providers. A single provider
// is returned as-is; several are wrapped in a FallbackFetcher.
func NewFetcher(cfg *config.CatalogConfig) (port.BibliographicFetcher, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("catalog.NewFetcher: no providers configured")
	}
	fetchers := make([]port.BibliographicFetcher, 0, len(cfg.Providers))
	names := make([]string, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		f, err := NewProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("catalog.NewFetcher: %w", err)
		}
		fetchers = append(fetchers, f)
		names = append(names, name)
	}
	if len(fetchers) == 1 {
		return fetchers[0], nil
	}
	return NewFallbackFetcher(fetchers, names), nil
}
