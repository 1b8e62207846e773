// Package noop discards events.
package noop

import (
	"context"
	"log/slog"

	"polgen/internal/domain"
	"polgen/internal/port"
)

type publisher struct{}

// NewPublisher creates an EventPublisher that only logs at debug level.
func NewPublisher() port.EventPublisher {
	return publisher{}
}

func (publisher) PublishPOLCreated(_ context.Context, runID string, result *domain.SubmissionResult) error {
	slog.Debug("noop.PublishPOLCreated", "run_id", runID, "pol", result.POLNumber)
	return nil
}

func (publisher) PublishBatchCompleted(_ context.Context, report *domain.BatchReport) error {
	slog.Debug("noop.PublishBatchCompleted", "run_id", report.RunID)
	return nil
}

func (publisher) Close() error { return nil }
