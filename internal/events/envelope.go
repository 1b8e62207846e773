// Package events defines the messages polgen publishes about created POLs and
// finished runs.
package events

import (
	"time"

	"github.com/google/uuid"

	"polgen/internal/domain"
)

// Routing keys on the topic exchange.
const (
	POLCreatedRoutingKey     = "pol.created.v1"
	BatchCompletedRoutingKey = "pol.batch.completed.v1"
	producerName             = "polgen"
)

// Envelope wraps every published payload.
type Envelope[T any] struct {
	EventName    string    `json:"eventName"`
	EventVersion int       `json:"eventVersion"`
	EventID      string    `json:"eventId"`
	Producer     string    `json:"producer"`
	PartitionKey string    `json:"partitionKey"`
	OccurredAt   time.Time `json:"occurredAt"`
	Payload      T         `json:"payload"`
}

// POLCreated announces one POL created in the ILS.
type POLCreated struct {
	RunID        string `json:"runId"`
	POLNumber    string `json:"polNumber"`
	Identifier   string `json:"identifier"`
	MaterialType string `json:"materialType"`
	VendorCode   string `json:"vendorCode"`
	Title        string `json:"title,omitempty"`
}

// BatchCompleted announces a finished run.
type BatchCompleted struct {
	RunID       string              `json:"runId"`
	DryRun      bool                `json:"dryRun"`
	Aborted     bool                `json:"aborted"`
	AbortReason string              `json:"abortReason,omitempty"`
	StartedAt   time.Time           `json:"startedAt"`
	FinishedAt  time.Time           `json:"finishedAt"`
	Summary     domain.BatchSummary `json:"summary"`
	POLNumbers  []string            `json:"polNumbers"`
}

func newEnvelope[T any](name, key string, payload T, now time.Time) Envelope[T] {
	return Envelope[T]{
		EventName:    name,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: key,
		OccurredAt:   now.UTC(),
		Payload:      payload,
	}
}

// NewPOLCreated builds the event for a successful submission. The partition
// key is the POL number.
func NewPOLCreated(runID string, res *domain.SubmissionResult, now time.Time) Envelope[POLCreated] {
	return newEnvelope("POLCreated", res.POLNumber, POLCreated{
		RunID:        runID,
		POLNumber:    res.POLNumber,
		Identifier:   res.Identifier,
		MaterialType: res.MaterialType,
		VendorCode:   res.VendorCode,
		Title:        res.Title,
	}, now)
}

// NewBatchCompleted builds the event for a finished run, listing the POL
// numbers created in input order.
func NewBatchCompleted(rep *domain.BatchReport, now time.Time) Envelope[BatchCompleted] {
	pols := make([]string, 0, rep.Summary.Succeeded)
	for _, r := range rep.Results {
		if r.Status == domain.ResultStatusSucceeded && r.POLNumber != "" {
			pols = append(pols, r.POLNumber)
		}
	}
	runID := rep.RunID.String()
	return newEnvelope("POLBatchCompleted", runID, BatchCompleted{
		RunID:       runID,
		DryRun:      rep.DryRun,
		Aborted:     rep.Aborted,
		AbortReason: rep.AbortReason,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Summary:     rep.Summary,
		POLNumbers:  pols,
	}, now)
}
