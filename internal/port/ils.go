package port

import (
	"context"

	"polgen/internal/domain"
)

// POLSubmitter creates purchase order lines in the ILS.
type POLSubmitter interface {
	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
	// Submit creates the POL and returns the ILS-assigned number. Errors are
	// *domain.RejectedError, *domain.TransientError or *domain.AuthError.
	Submit(ctx context.Context, doc *domain.POLDocument) (string, error)
	// FindExisting looks for an active POL for the vendor and identifier.
	FindExisting(ctx context.Context, vendorCode string, id domain.Identifier) (string, bool, error)
}
