package port

import (
	"context"

	"polgen/internal/domain"
)

// BibliographicFetcher looks up an identifier in a union catalog and returns
// the canonical record. It fails with domain.ErrNotFound, *domain.AuthError or
// *domain.TransientError.
type BibliographicFetcher interface {
	Fetch(ctx context.Context, id domain.Identifier) (*domain.BibliographicRecord, error)
}

// MarketplaceEnricher returns supplementary commerce data. A nil record with a
// nil error means no data. Only *domain.AuthError and
// domain.ErrInvalidIdentifier are returned as errors.
type MarketplaceEnricher interface {
	Enrich(ctx context.Context, id domain.Identifier) (*domain.MarketplaceRecord, error)
}

// TemplateResolver returns the POL skeleton for a material type.
type TemplateResolver interface {
	Resolve(materialType string) (*domain.Template, error)
	List() []*domain.Template
}
