package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockPOLSubmitter is a mock implementation of port.POLSubmitter.
type MockPOLSubmitter struct {
	mock.Mock
}

func (m *MockPOLSubmitter) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPOLSubmitter) Submit(ctx context.Context, doc *domain.POLDocument) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *MockPOLSubmitter) FindExisting(ctx context.Context, vendorCode string, id domain.Identifier) (string, bool, error) {
	args := m.Called(ctx, vendorCode, id)
	return args.String(0), args.Bool(1), args.Error(2)
}
