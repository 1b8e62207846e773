package port

import (
	"context"

	"polgen/internal/domain"
)

// RunNotifier sends a run summary to acquisitions staff.
type RunNotifier interface {
	SendRunSummary(ctx context.Context, report *domain.BatchReport, reportURL string) error
}
