package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"polgen/internal/domain"
	"polgen/internal/port"
)

type batchRunRepo struct {
	db *sqlx.DB
}

// NewBatchRunRepo creates a new PostgreSQL-backed BatchRunRepository.
func NewBatchRunRepo(db *sqlx.DB) port.BatchRunRepository {
	return &batchRunRepo{db: db}
}

// resultRow is a submission_results row. Error and warnings are JSONB.
type resultRow struct {
	domain.SubmissionResult
	ErrorJSON    []byte `db:"error"`
	WarningsJSON []byte `db:"warnings"`
}

func (r *batchRunRepo) Create(ctx context.Context, run *domain.BatchRun) error {
	query := `INSERT INTO batch_runs (id, status, source, dry_run, total_items, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.Source, run.DryRun, run.TotalItems, run.StartedAt)
	if err != nil {
		return fmt.Errorf("batchRunRepo.Create: %w", err)
	}
	return nil
}

func (r *batchRunRepo) Complete(ctx context.Context, run *domain.BatchRun) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE batch_runs SET status = $1, total_items = $2, succeeded = $3, failed = $4,
		 not_attempted = $5, abort_reason = $6, report_key = $7, finished_at = $8
		 WHERE id = $9`,
		run.Status, run.TotalItems, run.Succeeded, run.Failed,
		run.NotAttempted, run.AbortReason, run.ReportKey, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("batchRunRepo.Complete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *batchRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchRun, error) {
	var run domain.BatchRun
	err := r.db.GetContext(ctx, &run, "SELECT * FROM batch_runs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("batchRunRepo.GetByID: %w", err)
	}
	return &run, nil
}

func (r *batchRunRepo) List(ctx context.Context, offset, limit int) ([]domain.BatchRun, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM batch_runs"); err != nil {
		return nil, 0, fmt.Errorf("batchRunRepo.List count: %w", err)
	}

	var runs []domain.BatchRun
	err := r.db.SelectContext(ctx, &runs,
		"SELECT * FROM batch_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("batchRunRepo.List: %w", err)
	}
	return runs, total, nil
}

// SaveResults replaces the stored results of a run in one transaction.
func (r *batchRunRepo) SaveResults(ctx context.Context, runID uuid.UUID, results []domain.SubmissionResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("batchRunRepo.SaveResults begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_results WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("batchRunRepo.SaveResults delete: %w", err)
	}

	query := `INSERT INTO submission_results (run_id, item_index, identifier, material_type, vendor_code,
		title, status, pol_number, state, failed_stage, attempts, error, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	for i := range results {
		res := &results[i]
		errJSON, warnJSON, err := encodeResultDetail(res)
		if err != nil {
			return fmt.Errorf("batchRunRepo.SaveResults item %d: %w", res.Index, err)
		}
		_, err = tx.ExecContext(ctx, query,
			runID, res.Index, res.Identifier, res.MaterialType, res.VendorCode,
			res.Title, res.Status, res.POLNumber, res.State, res.FailedStage, res.Attempts,
			errJSON, warnJSON)
		if err != nil {
			return fmt.Errorf("batchRunRepo.SaveResults insert %d: %w", res.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("batchRunRepo.SaveResults commit: %w", err)
	}
	return nil
}

func (r *batchRunRepo) ListResults(ctx context.Context, runID uuid.UUID) ([]domain.SubmissionResult, error) {
	var rows []resultRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT item_index, identifier, material_type, vendor_code, title, status, pol_number,
		 state, failed_stage, attempts, error, warnings
		 FROM submission_results WHERE run_id = $1 ORDER BY item_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("batchRunRepo.ListResults: %w", err)
	}

	results := make([]domain.SubmissionResult, len(rows))
	for i := range rows {
		res := rows[i].SubmissionResult
		if len(rows[i].ErrorJSON) > 0 {
			var detail domain.ErrorDetail
			if err := json.Unmarshal(rows[i].ErrorJSON, &detail); err != nil {
				return nil, fmt.Errorf("batchRunRepo.ListResults error detail %d: %w", res.Index, err)
			}
			res.Error = &detail
		}
		if len(rows[i].WarningsJSON) > 0 {
			if err := json.Unmarshal(rows[i].WarningsJSON, &res.Warnings); err != nil {
				return nil, fmt.Errorf("batchRunRepo.ListResults warnings %d: %w", res.Index, err)
			}
		}
		results[i] = res
	}
	return results, nil
}

func encodeResultDetail(res *domain.SubmissionResult) (errJSON, warnJSON []byte, err error) {
	if res.Error != nil {
		if errJSON, err = json.Marshal(res.Error); err != nil {
			return nil, nil, err
		}
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	if warnJSON, err = json.Marshal(warnings); err != nil {
		return nil, nil, err
	}
	return errJSON, warnJSON, nil
}
