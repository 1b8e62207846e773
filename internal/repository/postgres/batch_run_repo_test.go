package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polgen/internal/domain"
	"polgen/internal/repository/postgres"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

var runColumns = []string{
	"id", "status", "source", "dry_run", "total_items", "succeeded", "failed",
	"not_attempted", "abort_reason", "report_key", "started_at", "finished_at",
}

func TestBatchRunRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	run := &domain.BatchRun{
		ID:         uuid.New(),
		Status:     domain.RunStatusRunning,
		Source:     "orders.csv",
		TotalItems: 3,
		StartedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_runs")).
		WithArgs(run.ID, "running", "orders.csv", false, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunRepo_Create_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_runs")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &domain.BatchRun{ID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batchRunRepo.Create")
}

func TestBatchRunRepo_Complete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	finished := time.Now().UTC()
	run := &domain.BatchRun{
		ID:           uuid.New(),
		Status:       domain.RunStatusAborted,
		TotalItems:   4,
		Succeeded:    1,
		Failed:       1,
		NotAttempted: 2,
		AbortReason:  "ILS authentication failed",
		ReportKey:    "reports/run.csv",
		FinishedAt:   &finished,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE batch_runs SET status = $1")).
		WithArgs("aborted", 4, 1, 1, 2, "ILS authentication failed", "reports/run.csv", sqlmock.AnyArg(), run.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Complete(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunRepo_Complete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE batch_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), &domain.BatchRun{ID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestBatchRunRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	id := uuid.New()
	started := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM batch_runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow(id.String(), "completed", "orders.json", true, 2, 0, 0, 0, "", "", started, finished))

	run, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.True(t, run.DryRun)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM batch_runs")).
		WillReturnRows(sqlmock.NewRows(runColumns))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestBatchRunRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM batch_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY started_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow(uuid.New().String(), "completed", "a.csv", false, 1, 1, 0, 0, "", "", now, now).
			AddRow(uuid.New().String(), "running", "b.csv", false, 3, 0, 0, 0, "", "", now, nil))

	runs, total, err := repo.List(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.RunStatusRunning, runs[1].Status)
	assert.Nil(t, runs[1].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunRepo_SaveResults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	runID := uuid.New()
	results := []domain.SubmissionResult{
		{Index: 0, Identifier: "9780306406157", Status: domain.ResultStatusSucceeded, POLNumber: "POL-1", State: domain.ItemStateSucceeded, Attempts: 1},
		{
			Index: 1, Identifier: "bogus", Status: domain.ResultStatusFailedValidation,
			State: domain.ItemStateFailed, FailedStage: domain.StageIdentifier,
			Error:    &domain.ErrorDetail{Kind: "validation", Message: "invalid identifier"},
			Warnings: []string{"no catalog match"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submission_results WHERE run_id = $1")).
		WithArgs(runID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission_results")).
		WithArgs(runID, 0, "9780306406157", "", "", "", "succeeded", "POL-1", "succeeded", "", 1,
			sqlmock.AnyArg(), []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission_results")).
		WithArgs(runID, 1, "bogus", "", "", "", "failed-validation", "", "failed", "identifier", 0,
			[]byte(`{"kind":"validation","message":"invalid identifier"}`), []byte(`["no catalog match"]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveResults(context.Background(), runID, results))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunRepo_SaveResults_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submission_results")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission_results")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.SaveResults(context.Background(), uuid.New(), []domain.SubmissionResult{{Index: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batchRunRepo.SaveResults insert 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunRepo_ListResults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewBatchRunRepo(db)

	runID := uuid.New()
	cols := []string{
		"item_index", "identifier", "material_type", "vendor_code", "title", "status",
		"pol_number", "state", "failed_stage", "attempts", "error", "warnings",
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM submission_results WHERE run_id = $1 ORDER BY item_index")).
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(0, "9780306406157", "book", "AMAZON", "Deep Work", "succeeded", "POL-7", "succeeded", "", 2, nil, []byte(`[]`)).
			AddRow(1, "12345", "dvd", "MIDWEST", "", "failed-rejected", "", "failed", "submit", 1,
				[]byte(`{"kind":"rejected","message":"fund not found"}`), []byte(`["marketplace lookup failed"]`)))

	results, err := repo.ListResults(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "POL-7", results[0].POLNumber)
	assert.Nil(t, results[0].Error)
	assert.Empty(t, results[0].Warnings)

	assert.Equal(t, domain.ResultStatusFailedRejected, results[1].Status)
	assert.Equal(t, domain.StageSubmit, results[1].FailedStage)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, "fund not found", results[1].Error.Message)
	assert.Equal(t, []string{"marketplace lookup failed"}, results[1].Warnings)
	assert.NoError(t, mock.ExpectationsWereMet())
}
