package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockPOLLedger is a mock implementation of port.POLLedger.
type MockPOLLedger struct {
	mock.Mock
}

func (m *MockPOLLedger) Lookup(ctx context.Context, vendorCode, identifier string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, vendorCode, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockPOLLedger) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockPOLLedger) Reserve(ctx context.Context, vendorCode, identifier string, runID uuid.UUID) error {
	args := m.Called(ctx, vendorCode, identifier, runID)
	return args.Error(0)
}

func (m *MockPOLLedger) Release(ctx context.Context, vendorCode, identifier string) error {
	args := m.Called(ctx, vendorCode, identifier)
	return args.Error(0)
}
