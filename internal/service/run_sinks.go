package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"polgen/internal/domain"
	"polgen/internal/port"
	"polgen/internal/report"
)

// RunSinks receives run lifecycle output: persistence, the archived report,
// the summary email and events. Every field is optional and sink failures are
// logged, never surfaced as item failures.
type RunSinks struct {
	Runs          port.BatchRunRepository
	Storage       port.ObjectStorage
	Bucket        string
	Prefix        string
	PresignExpiry int64
	Notifier      port.RunNotifier
	Events        port.EventPublisher
}

func (s *RunSinks) begin(ctx context.Context, rep *domain.BatchReport, source string) {
	if s == nil || s.Runs == nil {
		return
	}
	run := &domain.BatchRun{
		ID:         rep.RunID,
		Status:     domain.RunStatusRunning,
		Source:     source,
		DryRun:     rep.DryRun,
		TotalItems: len(rep.Results),
		StartedAt:  rep.StartedAt,
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		slog.Error("service.RunSinks.begin: failed to persist run", "run_id", rep.RunID, "error", err)
	}
}

func (s *RunSinks) polCreated(ctx context.Context, runID uuid.UUID, res *domain.SubmissionResult) {
	if s == nil || s.Events == nil {
		return
	}
	if err := s.Events.PublishPOLCreated(ctx, runID.String(), res); err != nil {
		slog.Warn("service.RunSinks.polCreated: failed to publish event", "pol", res.POLNumber, "error", err)
	}
}

func (s *RunSinks) end(ctx context.Context, rep *domain.BatchReport) {
	if s == nil {
		return
	}

	var reportKey, reportURL string
	if s.Storage != nil && s.Bucket != "" {
		reportKey, reportURL = s.archive(ctx, rep)
	}

	if s.Runs != nil {
		finished := rep.FinishedAt
		status := domain.RunStatusCompleted
		if rep.Aborted {
			status = domain.RunStatusAborted
		}
		run := &domain.BatchRun{
			ID:           rep.RunID,
			Status:       status,
			DryRun:       rep.DryRun,
			TotalItems:   rep.Summary.Total,
			Succeeded:    rep.Summary.Succeeded,
			Failed:       rep.Summary.Failed,
			NotAttempted: rep.Summary.NotAttempted,
			AbortReason:  rep.AbortReason,
			ReportKey:    reportKey,
			StartedAt:    rep.StartedAt,
			FinishedAt:   &finished,
		}
		if err := s.Runs.SaveResults(ctx, rep.RunID, rep.Results); err != nil {
			slog.Error("service.RunSinks.end: failed to save results", "run_id", rep.RunID, "error", err)
		}
		if err := s.Runs.Complete(ctx, run); err != nil {
			slog.Error("service.RunSinks.end: failed to complete run", "run_id", rep.RunID, "error", err)
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendRunSummary(ctx, rep, reportURL); err != nil {
			slog.Warn("service.RunSinks.end: failed to send summary", "run_id", rep.RunID, "error", err)
		}
	}

	if s.Events != nil {
		if err := s.Events.PublishBatchCompleted(ctx, rep); err != nil {
			slog.Warn("service.RunSinks.end: failed to publish completion", "run_id", rep.RunID, "error", err)
		}
	}
}

// ReportKey is the object key a run's CSV report is archived under.
func ReportKey(prefix string, rep *domain.BatchReport) string {
	name := fmt.Sprintf("%s/%s.csv", rep.StartedAt.Format("2006/01/02"), rep.RunID)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func (s *RunSinks) archive(ctx context.Context, rep *domain.BatchReport) (key, url string) {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep); err != nil {
		slog.Error("service.RunSinks.archive: failed to render report", "run_id", rep.RunID, "error", err)
		return "", ""
	}

	key = ReportKey(s.Prefix, rep)
	_, err := s.Storage.Upload(ctx, port.UploadInput{
		Bucket:      s.Bucket,
		Key:         key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: report.FormatCSV.ContentType(),
		Size:        int64(buf.Len()),
	})
	if err != nil {
		slog.Error("service.RunSinks.archive: upload failed", "run_id", rep.RunID, "key", key, "error", err)
		return "", ""
	}

	expiry := s.PresignExpiry
	if expiry <= 0 {
		expiry = int64((24 * time.Hour).Seconds())
	}
	url, err = s.Storage.GetPresignedURL(ctx, s.Bucket, key, expiry)
	if err != nil {
		slog.Warn("service.RunSinks.archive: presign failed", "key", key, "error", err)
		url = ""
	}
	return key, url
}
