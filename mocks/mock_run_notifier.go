package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"polgen/internal/domain"
)

// MockRunNotifier is a mock implementation of port.RunNotifier.
type MockRunNotifier struct {
	mock.Mock
}

func (m *MockRunNotifier) SendRunSummary(ctx context.Context, report *domain.BatchReport, reportURL string) error {
	args := m.Called(ctx, report, reportURL)
	return args.Error(0)
}
