package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockBatchRunRepo is a mock implementation of port.BatchRunRepository.
type MockBatchRunRepo struct {
	mock.Mock
}

func (m *MockBatchRunRepo) Create(ctx context.Context, run *domain.BatchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockBatchRunRepo) Complete(ctx context.Context, run *domain.BatchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockBatchRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchRun), args.Error(1)
}

func (m *MockBatchRunRepo) List(ctx context.Context, offset, limit int) ([]domain.BatchRun, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.BatchRun), args.Int(1), args.Error(2)
}

func (m *MockBatchRunRepo) SaveResults(ctx context.Context, runID uuid.UUID, results []domain.SubmissionResult) error {
	args := m.Called(ctx, runID, results)
	return args.Error(0)
}

func (m *MockBatchRunRepo) ListResults(ctx context.Context, runID uuid.UUID) ([]domain.SubmissionResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubmissionResult), args.Error(1)
}
