package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
	"polgen/internal/service"
)

// MockBatchService is a mock implementation of service.BatchService.
type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) Run(ctx context.Context, items []domain.BatchItem, opts service.RunOptions) (*domain.BatchReport, error) {
	args := m.Called(ctx, items, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchReport), args.Error(1)
}

func (m *MockBatchService) Preview(ctx context.Context, item domain.BatchItem) (*service.Preview, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Preview), args.Error(1)
}
