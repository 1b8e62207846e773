package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockBibliographicFetcher is a mock implementation of port.BibliographicFetcher.
type MockBibliographicFetcher struct {
	mock.Mock
}

func (m *MockBibliographicFetcher) Fetch(ctx context.Context, id domain.Identifier) (*domain.BibliographicRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BibliographicRecord), args.Error(1)
}
