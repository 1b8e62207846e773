package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockEventPublisher is a mock implementation of port.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPOLCreated(ctx context.Context, runID string, result *domain.SubmissionResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatchCompleted(ctx context.Context, report *domain.BatchReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
