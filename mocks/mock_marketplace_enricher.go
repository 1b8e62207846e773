package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockMarketplaceEnricher is a mock implementation of port.MarketplaceEnricher.
type MockMarketplaceEnricher struct {
	mock.Mock
}

func (m *MockMarketplaceEnricher) Enrich(ctx context.Context, id domain.Identifier) (*domain.MarketplaceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MarketplaceRecord), args.Error(1)
}
