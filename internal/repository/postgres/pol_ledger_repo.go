package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"polgen/internal/domain"
	"polgen/internal/port"
)

type polLedgerRepo struct {
	db *sqlx.DB
}

// NewPOLLedgerRepo creates a new PostgreSQL-backed POLLedger.
func NewPOLLedgerRepo(db *sqlx.DB) port.POLLedger {
	return &polLedgerRepo{db: db}
}

func (r *polLedgerRepo) Lookup(ctx context.Context, vendorCode, identifier string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := r.db.GetContext(ctx, &entry,
		`SELECT vendor_code, identifier, pol_number, run_id, created_at
		 FROM pol_ledger WHERE vendor_code = $1 AND identifier = $2`,
		vendorCode, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("polLedgerRepo.Lookup: %w", err)
	}
	return &entry, nil
}

// Reserve inserts a pending row with an empty pol_number. The
// (vendor_code, identifier) primary key lets only one caller win.
func (r *polLedgerRepo) Reserve(ctx context.Context, vendorCode, identifier string, runID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO pol_ledger (vendor_code, identifier, pol_number, run_id, created_at)
		 VALUES ($1, $2, '', $3, $4)
		 ON CONFLICT (vendor_code, identifier) DO NOTHING`,
		vendorCode, identifier, runID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("polLedgerRepo.Reserve: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDuplicatePOL
	}
	return nil
}

// Record inserts entry or fills in a pending reservation. A row that already
// carries a POL number is left alone and reported as ErrDuplicatePOL.
func (r *polLedgerRepo) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO pol_ledger (vendor_code, identifier, pol_number, run_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (vendor_code, identifier) DO UPDATE
		 SET pol_number = EXCLUDED.pol_number, run_id = EXCLUDED.run_id, created_at = EXCLUDED.created_at
		 WHERE pol_ledger.pol_number = ''`,
		entry.VendorCode, entry.Identifier, entry.POLNumber, entry.RunID, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("polLedgerRepo.Record: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDuplicatePOL
	}
	return nil
}

func (r *polLedgerRepo) Release(ctx context.Context, vendorCode, identifier string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pol_ledger WHERE vendor_code = $1 AND identifier = $2 AND pol_number = ''`,
		vendorCode, identifier)
	if err != nil {
		return fmt.Errorf("polLedgerRepo.Release: %w", err)
	}
	return nil
}
