package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"polgen/internal/domain"
	"polgen/internal/pol"
	"polgen/internal/port"
	"polgen/internal/retry"
)

const defaultItemTimeout = 5 * time.Minute

// BatchConfig holds orchestrator settings.
type BatchConfig struct {
	Concurrency   int
	CheckLedger   bool
	CheckExisting bool
	ItemTimeout   time.Duration
	Retry         retry.Policy
}

// RunOptions tunes a single run.
type RunOptions struct {
	DryRun      bool
	Concurrency int // overrides BatchConfig.Concurrency when > 0
	Source      string
	RunID       uuid.UUID // generated when zero
}

// Preview is the outcome of building one item without submitting it.
type Preview struct {
	Document *domain.POLDocument     `json:"document,omitempty"`
	Result   domain.SubmissionResult `json:"result"`
}

// BatchService runs the POL pipeline over batches of items.
type BatchService interface {
	// Run processes items and returns one result per item in input order. Only
	// an authentication failure (or ctx cancellation) is returned as an error,
	// together with the partial report.
	Run(ctx context.Context, items []domain.BatchItem, opts RunOptions) (*domain.BatchReport, error)
	// Preview builds and validates one item without touching the ILS.
	Preview(ctx context.Context, item domain.BatchItem) (*Preview, error)
}

type batchService struct {
	templates port.TemplateResolver
	fetcher   port.BibliographicFetcher
	enricher  port.MarketplaceEnricher
	submitter port.POLSubmitter
	ledger    port.POLLedger
	sinks     *RunSinks
	cfg       BatchConfig
	inflight  *keyLocks
}

// NewBatchService creates a new BatchService. enricher, ledger and sinks may
// be nil.
func NewBatchService(
	templates port.TemplateResolver,
	fetcher port.BibliographicFetcher,
	enricher port.MarketplaceEnricher,
	submitter port.POLSubmitter,
	ledger port.POLLedger,
	sinks *RunSinks,
	cfg BatchConfig,
) BatchService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = defaultItemTimeout
	}
	return &batchService{
		templates: templates,
		fetcher:   fetcher,
		enricher:  enricher,
		submitter: submitter,
		ledger:    ledger,
		sinks:     sinks,
		cfg:       cfg,
		inflight:  newKeyLocks(),
	}
}

func (s *batchService) Run(ctx context.Context, items []domain.BatchItem, opts RunOptions) (*domain.BatchReport, error) {
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	rep := &domain.BatchReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
		Results:   make([]domain.SubmissionResult, len(items)),
	}
	s.sinks.begin(ctx, rep, opts.Source)

	concurrency := s.cfg.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	slog.Info("service.batchService.Run: starting",
		"run_id", runID, "items", len(items), "concurrency", concurrency, "dry_run", opts.DryRun)

	if !opts.DryRun {
		if err := s.preflight(ctx); err != nil {
			for i := range items {
				rep.Results[i] = notAttempted(i, items[i], err.Error())
			}
			return s.finish(ctx, rep, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		fatalErr error
	)
	started := make([]bool, len(items))
	sem := make(chan struct{}, concurrency)

dispatch:
	for i := range items {
		select {
		case sem <- struct{}{}: // acquire
		case <-runCtx.Done():
			break dispatch
		}
		if runCtx.Err() != nil {
			<-sem
			break
		}

		started[i] = true
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release

			out, fatal := s.processItem(runCtx, runID, i, items[i], opts.DryRun)
			rep.Results[i] = out.result
			if fatal != nil {
				once.Do(func() {
					fatalErr = fatal
					cancel()
				})
			}
		}(i)
	}
	wg.Wait()

	runErr := fatalErr
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	for i := range items {
		if !started[i] {
			reason := "run aborted"
			if runErr != nil {
				reason = runErr.Error()
			}
			rep.Results[i] = notAttempted(i, items[i], reason)
		}
	}
	return s.finish(ctx, rep, runErr)
}

func (s *batchService) Preview(ctx context.Context, item domain.BatchItem) (*Preview, error) {
	out, fatal := s.processItem(ctx, uuid.Nil, 0, item, true)
	if fatal != nil {
		return nil, fatal
	}
	return &Preview{Document: out.doc, Result: out.result}, nil
}

// preflight checks ILS connectivity. Only an authentication failure stops the
// run; anything else surfaces per item.
func (s *batchService) preflight(ctx context.Context) error {
	_, err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		return s.submitter.Ping(ctx)
	})
	if err == nil {
		return nil
	}
	if domain.IsAuth(err) {
		slog.Error("service.batchService.preflight: ILS rejected credentials", "error", err)
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Warn("service.batchService.preflight: ILS ping failed, continuing", "error", err)
	return nil
}

func (s *batchService) finish(ctx context.Context, rep *domain.BatchReport, runErr error) (*domain.BatchReport, error) {
	rep.FinishedAt = time.Now().UTC()
	if runErr != nil {
		rep.Aborted = true
		rep.AbortReason = runErr.Error()
	}
	rep.Summarize()

	slog.Info("service.batchService.Run: finished",
		"run_id", rep.RunID,
		"succeeded", rep.Summary.Succeeded,
		"failed", rep.Summary.Failed,
		"not_attempted", rep.Summary.NotAttempted,
		"skipped", rep.Summary.Skipped,
		"validated", rep.Summary.Validated,
		"aborted", rep.Aborted,
	)

	// Sinks run after the pool drains and must not depend on a canceled ctx.
	s.sinks.end(context.WithoutCancel(ctx), rep)
	return rep, runErr
}

func notAttempted(index int, item domain.BatchItem, reason string) domain.SubmissionResult {
	return domain.SubmissionResult{
		Index:        index,
		Identifier:   item.Identifier,
		MaterialType: item.MaterialType,
		VendorCode:   item.VendorCode,
		Status:       domain.ResultStatusNotAttempted,
		State:        domain.ItemStatePending,
		Error:        &domain.ErrorDetail{Kind: "aborted", Message: reason},
	}
}

// itemOutcome is what processing one item produced.
type itemOutcome struct {
	result domain.SubmissionResult
	doc    *domain.POLDocument
}

// tracker walks one item through its state machine and records the outcome.
type tracker struct {
	out itemOutcome
}

func (t *tracker) advance(next domain.ItemState) {
	r := &t.out.result
	if !r.State.CanTransitionTo(next) {
		slog.Warn("service.tracker.advance: illegal transition", "from", r.State, "to", next, "index", r.Index)
		return
	}
	r.State = next
}

func (t *tracker) fail(stage domain.Stage, status domain.ResultStatus, kind string, err error) {
	r := &t.out.result
	t.advance(domain.ItemStateFailed)
	r.Status = status
	r.FailedStage = stage
	detail := &domain.ErrorDetail{Kind: kind, Message: err.Error()}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		detail.Fields = vErr.Fields
	}
	r.Error = detail
}

func (t *tracker) warn(format string, args ...interface{}) {
	t.out.result.Warnings = append(t.out.result.Warnings, fmt.Sprintf(format, args...))
}

// processItem runs the pipeline for one item. The returned error is non-nil
// only for an authentication failure, which aborts the run. The item runs on
// its own context so it completes even when the run is canceled.
func (s *batchService) processItem(runCtx context.Context, runID uuid.UUID, index int, item domain.BatchItem, dryRun bool) (itemOutcome, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), s.cfg.ItemTimeout)
	defer cancel()

	t := &tracker{out: itemOutcome{result: domain.SubmissionResult{
		Index:        index,
		Identifier:   item.Identifier,
		MaterialType: item.MaterialType,
		VendorCode:   item.VendorCode,
		State:        domain.ItemStatePending,
	}}}
	res := &t.out.result

	id, err := domain.ParseIdentifier(item.Identifier, item.IdentifierType)
	if err != nil {
		t.fail(domain.StageIdentifier, domain.ResultStatusFailedValidation, "invalid_identifier", err)
		return t.out, nil
	}
	res.Identifier = id.Value

	tmpl, err := s.templates.Resolve(item.MaterialType)
	if err != nil {
		t.fail(domain.StageTemplate, domain.ResultStatusFailedValidation, "unknown_material_type", err)
		return t.out, nil
	}
	res.MaterialType = tmpl.MaterialType()
	t.advance(domain.ItemStateTemplateResolved)

	var bib *domain.BibliographicRecord
	fetchRes, err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		bib, ferr = s.fetcher.Fetch(ctx, id)
		return ferr
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		bib = domain.UnknownRecord()
		t.warn("catalog: no record for %s", id)
	case domain.IsAuth(err):
		t.fail(domain.StageFetch, domain.ResultStatusFailedFatal, "auth", err)
		return t.out, err
	default:
		res.Attempts = fetchRes.Attempts
		t.fail(domain.StageFetch, domain.ResultStatusFailedNetwork, "transient", err)
		return t.out, nil
	}
	t.advance(domain.ItemStateMetadataFetched)

	var mkt *domain.MarketplaceRecord
	if s.enricher != nil {
		mkt, err = s.enricher.Enrich(ctx, id)
		switch {
		case err == nil:
			if mkt == nil {
				t.warn("marketplace: no data for %s", id)
			}
		case domain.IsAuth(err):
			t.fail(domain.StageEnrich, domain.ResultStatusFailedFatal, "auth", err)
			return t.out, err
		case errors.Is(err, domain.ErrInvalidIdentifier):
			t.fail(domain.StageEnrich, domain.ResultStatusFailedValidation, "invalid_identifier", err)
			return t.out, nil
		default:
			mkt = nil
			t.warn("marketplace: %v", err)
		}
	}

	doc, err := pol.Build(tmpl, item, bib, mkt)
	t.out.doc = doc
	if doc != nil {
		res.Title = doc.Get(domain.FieldTitle)
	}
	t.advance(domain.ItemStateBuilt)
	if err != nil {
		t.fail(domain.StageBuild, domain.ResultStatusFailedValidation, "validation", err)
		return t.out, nil
	}
	t.advance(domain.ItemStateValidated)

	if dryRun {
		res.Status = domain.ResultStatusValidated
		return t.out, nil
	}

	// Items sharing a vendor and identifier submit one at a time, across runs.
	unlock := s.inflight.lock(item.VendorCode + "\x00" + id.Value)
	defer unlock()

	if number, dup, err := s.findDuplicate(ctx, item.VendorCode, id); err != nil {
		if domain.IsAuth(err) {
			t.fail(domain.StageDuplicate, domain.ResultStatusFailedFatal, "auth", err)
			return t.out, err
		}
		t.fail(domain.StageDuplicate, domain.ResultStatusFailedNetwork, "duplicate_check", err)
		return t.out, nil
	} else if dup {
		s.skipDuplicate(t, item.VendorCode, id, number)
		return t.out, nil
	}

	reserved := false
	if s.ledger != nil && s.cfg.CheckLedger {
		err := s.ledger.Reserve(ctx, item.VendorCode, id.Value, runID)
		switch {
		case err == nil:
			reserved = true
		case errors.Is(err, domain.ErrDuplicatePOL):
			var number string
			if entry, lerr := s.ledger.Lookup(ctx, item.VendorCode, id.Value); lerr == nil {
				number = entry.POLNumber
			}
			s.skipDuplicate(t, item.VendorCode, id, number)
			return t.out, nil
		default:
			t.fail(domain.StageDuplicate, domain.ResultStatusFailedNetwork, "duplicate_check",
				fmt.Errorf("reserving POL ledger entry: %w", err))
			return t.out, nil
		}
	}

	t.advance(domain.ItemStateSubmitted)
	var (
		number  string
		attempt int
	)
	submitRes, err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		// A failed attempt may still have created the line.
		if attempt > 1 && s.cfg.CheckExisting {
			if n, found, ferr := s.submitter.FindExisting(ctx, item.VendorCode, id); ferr == nil && found {
				number = n
				return nil
			}
		}
		var serr error
		number, serr = s.submitter.Submit(ctx, doc)
		return serr
	})
	res.Attempts = submitRes.Attempts
	if err != nil {
		if reserved {
			s.releaseLedger(ctx, item.VendorCode, id)
		}
		var rej *domain.RejectedError
		switch {
		case domain.IsAuth(err):
			t.fail(domain.StageSubmit, domain.ResultStatusFailedFatal, "auth", err)
			return t.out, err
		case errors.As(err, &rej):
			t.fail(domain.StageSubmit, domain.ResultStatusFailedRejected, "rejected", err)
		default:
			t.fail(domain.StageSubmit, domain.ResultStatusFailedNetwork, "transient", err)
		}
		return t.out, nil
	}

	res.POLNumber = number
	res.Status = domain.ResultStatusSucceeded
	t.advance(domain.ItemStateSucceeded)
	s.recordLedger(ctx, t, runID, item.VendorCode, id, number)
	s.sinks.polCreated(ctx, runID, res)

	slog.Info("service.batchService.processItem: POL created",
		"index", index, "identifier", id.String(), "pol", number, "attempts", res.Attempts)
	return t.out, nil
}

func (s *batchService) skipDuplicate(t *tracker, vendorCode string, id domain.Identifier, number string) {
	res := &t.out.result
	res.Status = domain.ResultStatusSkippedDuplicate
	res.POLNumber = number
	if number == "" {
		t.warn("ledger: POL for %s is still pending in another run", id)
	}
	t.advance(domain.ItemStateSucceeded)
	slog.Info("service.batchService.processItem: skipping duplicate",
		"index", res.Index, "identifier", id.String(), "vendor", vendorCode, "pol", number)
}

// findDuplicate consults the ledger, then optionally the ILS. A pending ledger
// reservation counts as a duplicate.
func (s *batchService) findDuplicate(ctx context.Context, vendorCode string, id domain.Identifier) (string, bool, error) {
	if s.ledger != nil && s.cfg.CheckLedger {
		entry, err := s.ledger.Lookup(ctx, vendorCode, id.Value)
		switch {
		case err == nil:
			return entry.POLNumber, true, nil
		case errors.Is(err, domain.ErrNotFound):
		default:
			return "", false, fmt.Errorf("checking POL ledger: %w", err)
		}
	}

	if !s.cfg.CheckExisting {
		return "", false, nil
	}
	var (
		number string
		found  bool
	)
	_, err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		number, found, ferr = s.submitter.FindExisting(ctx, vendorCode, id)
		return ferr
	})
	if err != nil {
		return "", false, err
	}
	return number, found, nil
}

func (s *batchService) recordLedger(ctx context.Context, t *tracker, runID uuid.UUID, vendorCode string, id domain.Identifier, number string) {
	if s.ledger == nil {
		return
	}
	err := s.ledger.Record(ctx, &domain.LedgerEntry{
		VendorCode: vendorCode,
		Identifier: id.Value,
		POLNumber:  number,
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("service.batchService.recordLedger: failed to record POL", "pol", number, "error", err)
		t.warn("ledger: %v", err)
	}
}

func (s *batchService) releaseLedger(ctx context.Context, vendorCode string, id domain.Identifier) {
	if err := s.ledger.Release(ctx, vendorCode, id.Value); err != nil {
		slog.Warn("service.batchService.releaseLedger: failed to release reservation",
			"vendor", vendorCode, "identifier", id.String(), "error", err)
	}
}
