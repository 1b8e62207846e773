package marketplace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/marketplace"
	"polgen/internal/marketplace/httpapi"
)

func TestNew(t *testing.T) {
	e, err := marketplace.New(&config.MarketplaceConfig{Provider: "none"})
	require.NoError(t, err)
	assert.IsType(t, marketplace.Noop{}, e)

	e, err = marketplace.New(&config.MarketplaceConfig{Provider: "http", BaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &httpapi.Client{}, e)

	_, err = marketplace.New(&config.MarketplaceConfig{Provider: "http"})
	assert.Error(t, err)

	_, err = marketplace.New(&config.MarketplaceConfig{Provider: "amazon_csv", CSVPath: "/nonexistent/orders.csv"})
	assert.Error(t, err)

	_, err = marketplace.New(&config.MarketplaceConfig{Provider: "ebay"})
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	rec, err := marketplace.Noop{}.Enrich(context.Background(), domain.Identifier{Type: domain.IdentifierTypeISBN, Value: "9780306406157"})
	assert.NoError(t, err)
	assert.Nil(t, rec)

	_, err = marketplace.Noop{}.Enrich(context.Background(), domain.Identifier{})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}
