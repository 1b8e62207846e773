package port

import (
	"context"

	"polgen/internal/domain"
)

// EventPublisher announces created POLs and finished runs to other systems.
type EventPublisher interface {
	PublishPOLCreated(ctx context.Context, runID string, result *domain.SubmissionResult) error
	PublishBatchCompleted(ctx context.Context, report *domain.BatchReport) error
	Close() error
}
