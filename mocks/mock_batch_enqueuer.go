package mocks

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
	"polgen/internal/service"
)

// MockBatchEnqueuer is a mock implementation of handler.BatchEnqueuer.
type MockBatchEnqueuer struct {
	mock.Mock
}

func (m *MockBatchEnqueuer) Enqueue(items []domain.BatchItem, opts service.RunOptions) (uuid.UUID, error) {
	args := m.Called(items, opts)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
