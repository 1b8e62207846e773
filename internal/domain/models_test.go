package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"polgen/internal/domain"
)

func TestItemState_Transitions(t *testing.T) {
	path := []domain.ItemState{
		domain.ItemStatePending,
		domain.ItemStateTemplateResolved,
		domain.ItemStateMetadataFetched,
		domain.ItemStateBuilt,
		domain.ItemStateValidated,
		domain.ItemStateSubmitted,
		domain.ItemStateSucceeded,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransitionTo(path[i+1]), "%s -> %s", path[i], path[i+1])
		assert.True(t, path[i].CanTransitionTo(domain.ItemStateFailed), "%s -> failed", path[i])
	}

	assert.False(t, domain.ItemStateBuilt.CanTransitionTo(domain.ItemStatePending))
	assert.False(t, domain.ItemStateMetadataFetched.CanTransitionTo(domain.ItemStateSubmitted))
	assert.False(t, domain.ItemStateFailed.CanTransitionTo(domain.ItemStatePending))
	assert.False(t, domain.ItemStateSucceeded.CanTransitionTo(domain.ItemStateFailed))
	assert.True(t, domain.ItemStateValidated.CanTransitionTo(domain.ItemStateSucceeded))
}

func TestBibliographicRecord_FieldsIncludeUnknowns(t *testing.T) {
	rec := &domain.BibliographicRecord{Source: "worldcat"}
	rec.Set(domain.FieldTitle, "Sample Book")
	rec.Set(domain.FieldAuthor, "Doe, Jane")
	rec.Set(domain.FieldAuthor, "Roe, Richard")
	rec.Set(domain.FieldPublisher, "   ")

	fields := rec.Fields()
	assert.Len(t, fields, len(domain.BibliographicFields))
	assert.Equal(t, domain.Known("Sample Book"), fields[domain.FieldTitle])
	assert.Equal(t, "Doe, Jane; Roe, Richard", fields[domain.FieldAuthor].Value)
	assert.False(t, fields[domain.FieldPublisher].Known)
	assert.False(t, fields[domain.FieldPrice].Known)
	assert.Contains(t, rec.UnknownFields(), domain.FieldPrice)
	assert.NotContains(t, rec.UnknownFields(), domain.FieldTitle)
	assert.False(t, rec.Set("cover_url", "x"))
}

func TestMarketplaceRecord_Fields(t *testing.T) {
	available := true
	m := &domain.MarketplaceRecord{Price: domain.Known("12.50"), Available: &available}

	fields := m.Fields()
	assert.Equal(t, "12.50", fields[domain.FieldPrice].Value)
	assert.Equal(t, "true", fields[domain.FieldAvailability].Value)
	assert.False(t, fields[domain.FieldCoverURL].Known)
}

func TestBatchItem_OrderFields(t *testing.T) {
	item := domain.BatchItem{
		VendorCode: "AMAZON",
		FundCode:   "F100",
		Overrides:  map[string]string{"Price": " 29.99 ", "note": "", "fund": "IGNORED"},
	}

	fields := item.OrderFields()
	assert.Equal(t, "29.99", fields[domain.FieldPrice])
	assert.Equal(t, "F100", fields[domain.FieldFund])
	assert.Equal(t, "AMAZON", fields[domain.FieldVendor])
	_, hasNote := fields[domain.FieldNote]
	assert.False(t, hasNote)
}

func TestBatchReport_SummaryAndFailures(t *testing.T) {
	report := &domain.BatchReport{
		StartedAt: time.Now(),
		Results: []domain.SubmissionResult{
			{Status: domain.ResultStatusSucceeded},
			{Status: domain.ResultStatusSkippedDuplicate},
			{Status: domain.ResultStatusFailedValidation},
			{Status: domain.ResultStatusNotAttempted},
		},
	}
	report.Summarize()

	assert.Equal(t, domain.BatchSummary{Total: 4, Succeeded: 1, Failed: 1, NotAttempted: 1, Skipped: 1}, report.Summary)
	assert.True(t, report.HasFailures())

	ok := &domain.BatchReport{Results: []domain.SubmissionResult{{Status: domain.ResultStatusSucceeded}}}
	assert.False(t, ok.HasFailures())
	ok.Aborted = true
	assert.True(t, ok.HasFailures())
}

func TestErrorTaxonomy(t *testing.T) {
	authErr := domain.NewAuthError("worldcat", errors.New("401"))
	wrapped := fmt.Errorf("catalog.Fetch: %w", authErr)
	assert.True(t, domain.IsAuth(wrapped))
	assert.False(t, domain.IsTransient(wrapped))

	tErr := domain.NewTransientError("alma", 503, errors.New("unavailable"), 7)
	assert.True(t, domain.IsTransient(fmt.Errorf("wrap: %w", tErr)))
	assert.Equal(t, 7*time.Second, domain.RetryAfterOf(tErr))
	assert.Equal(t, time.Duration(0), domain.RetryAfterOf(errors.New("plain")))

	vErr := &domain.ValidationError{}
	assert.False(t, vErr.HasErrors())
	vErr.Add("title", "required field is empty")
	vErr.Add("price", "must be greater than zero")
	assert.Equal(t, []string{"title", "price"}, vErr.FieldNames())
	assert.Contains(t, vErr.Error(), "title: required field is empty")
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, domain.ParseRetryAfterHeader(""))
	assert.Equal(t, 30, domain.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, domain.ParseRetryAfterHeader("soon"))
	assert.Equal(t, 0, domain.ParseRetryAfterHeader("-5"))

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	secs := domain.ParseRetryAfterHeader(future)
	assert.InDelta(t, 90, secs, 2)
}
