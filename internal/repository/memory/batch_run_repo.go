// Package memory provides process-local repositories used when no database
// is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"polgen/internal/domain"
	"polgen/internal/port"
)

type batchRunRepo struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]domain.BatchRun
	results map[uuid.UUID][]domain.SubmissionResult
}

// NewBatchRunRepo creates an in-memory BatchRunRepository.
func NewBatchRunRepo() port.BatchRunRepository {
	return &batchRunRepo{
		runs:    make(map[uuid.UUID]domain.BatchRun),
		results: make(map[uuid.UUID][]domain.SubmissionResult),
	}
}

func (r *batchRunRepo) Create(_ context.Context, run *domain.BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *batchRunRepo) Complete(_ context.Context, run *domain.BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.runs[run.ID]
	if !ok {
		return domain.ErrRunNotFound
	}
	updated := *run
	updated.Source = existing.Source
	updated.StartedAt = existing.StartedAt
	r.runs[run.ID] = updated
	return nil
}

func (r *batchRunRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.BatchRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

// List returns runs newest first.
func (r *batchRunRepo) List(_ context.Context, offset, limit int) ([]domain.BatchRun, int, error) {
	r.mu.RLock()
	all := make([]domain.BatchRun, 0, len(r.runs))
	for _, run := range r.runs {
		all = append(all, run)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })

	total := len(all)
	if offset >= total {
		return []domain.BatchRun{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *batchRunRepo) SaveResults(_ context.Context, runID uuid.UUID, results []domain.SubmissionResult) error {
	cp := make([]domain.SubmissionResult, len(results))
	copy(cp, results)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[runID] = cp
	return nil
}

func (r *batchRunRepo) ListResults(_ context.Context, runID uuid.UUID) ([]domain.SubmissionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.results[runID]
	out := make([]domain.SubmissionResult, len(stored))
	copy(out, stored)
	return out, nil
}
