package port

import (
	"context"

	"github.com/google/uuid"

	"polgen/internal/domain"
)

// BatchRunRepository defines the contract for batch run persistence.
type BatchRunRepository interface {
	Create(ctx context.Context, run *domain.BatchRun) error
	Complete(ctx context.Context, run *domain.BatchRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchRun, error)
	List(ctx context.Context, offset, limit int) ([]domain.BatchRun, int, error)
	SaveResults(ctx context.Context, runID uuid.UUID, results []domain.SubmissionResult) error
	ListResults(ctx context.Context, runID uuid.UUID) ([]domain.SubmissionResult, error)
}

// POLLedger records POLs created per vendor and identifier so repeated runs
// do not create duplicates.
type POLLedger interface {
	// Lookup returns domain.ErrNotFound when no POL was recorded. A reserved
	// entry whose POL is still being created has an empty POLNumber.
	Lookup(ctx context.Context, vendorCode, identifier string) (*domain.LedgerEntry, error)
	// Reserve claims the key before submission. It returns
	// domain.ErrDuplicatePOL when the key is already reserved or recorded.
	Reserve(ctx context.Context, vendorCode, identifier string, runID uuid.UUID) error
	// Record stores the POL number, completing a reservation if one exists.
	// It returns domain.ErrDuplicatePOL when a POL is already recorded.
	Record(ctx context.Context, entry *domain.LedgerEntry) error
	// Release drops a reservation that did not produce a POL.
	Release(ctx context.Context, vendorCode, identifier string) error
}
