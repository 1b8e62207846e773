// Package noop logs run summaries instead of sending them.
package noop

import (
	"context"
	"log/slog"

	"polgen/internal/domain"
	"polgen/internal/email"
	"polgen/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a RunNotifier that logs the summary subject.
func NewNoopNotifier() port.RunNotifier {
	return noopNotifier{}
}

func (noopNotifier) SendRunSummary(_ context.Context, report *domain.BatchReport, reportURL string) error {
	msg := email.RunSummary(report, reportURL)
	slog.Info("noop.SendRunSummary: run summary", "subject", msg.Subject, "report_url", reportURL)
	return nil
}
