package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"polgen/internal/domain"
	"polgen/internal/port"
)

// RunDetail is a persisted run with its item results.
type RunDetail struct {
	Run     domain.BatchRun           `json:"run"`
	Results []domain.SubmissionResult `json:"results"`
}

// RunService reads persisted batch runs.
type RunService interface {
	Get(ctx context.Context, id uuid.UUID) (*RunDetail, error)
	List(ctx context.Context, offset, limit int) ([]domain.BatchRun, int, error)
	Report(ctx context.Context, id uuid.UUID) (*domain.BatchReport, error)
}

type runService struct {
	runRepo port.BatchRunRepository
}

// NewRunService creates a new RunService implementation.
func NewRunService(runRepo port.BatchRunRepository) RunService {
	return &runService{runRepo: runRepo}
}

func (s *runService) Get(ctx context.Context, id uuid.UUID) (*RunDetail, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := s.runRepo.ListResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.runService.Get: %w", err)
	}
	return &RunDetail{Run: *run, Results: results}, nil
}

func (s *runService) List(ctx context.Context, offset, limit int) ([]domain.BatchRun, int, error) {
	return s.runRepo.List(ctx, offset, limit)
}

// Report rebuilds the BatchReport of a finished run. A run still in progress
// has no report yet.
func (s *runService) Report(ctx context.Context, id uuid.UUID) (*domain.BatchReport, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Run.Status == domain.RunStatusRunning {
		return nil, fmt.Errorf("%w: run %s is still running", domain.ErrRunNotFound, id)
	}

	rep := &domain.BatchReport{
		RunID:       detail.Run.ID,
		StartedAt:   detail.Run.StartedAt,
		DryRun:      detail.Run.DryRun,
		Aborted:     detail.Run.Status == domain.RunStatusAborted,
		AbortReason: detail.Run.AbortReason,
		Results:     detail.Results,
	}
	if detail.Run.FinishedAt != nil {
		rep.FinishedAt = *detail.Run.FinishedAt
	}
	rep.Summarize()
	return rep, nil
}
