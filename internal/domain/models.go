package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldValue is a single metadata value that is either known or explicitly
// unknown. The zero value is unknown.
type FieldValue struct {
	Value string `json:"value,omitempty"`
	Known bool   `json:"known"`
}

// Known returns a known FieldValue, or Unknown when v is blank.
func Known(v string) FieldValue {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown()
	}
	return FieldValue{Value: v, Known: true}
}

// Unknown returns the explicit unknown marker.
func Unknown() FieldValue {
	return FieldValue{}
}

func (f FieldValue) String() string {
	if !f.Known {
		return "<unknown>"
	}
	return f.Value
}

// BibliographicRecord is the canonical shape every catalog source is mapped
// onto. Every field is always present; missing data is Unknown.
type BibliographicRecord struct {
	Source           string
	Title            FieldValue
	Authors          []string
	ISBN             FieldValue
	OCLCNumber       FieldValue
	Format           FieldValue
	Publisher        FieldValue
	PublicationYear  FieldValue
	PublicationPlace FieldValue
	ListPrice        FieldValue
}

// UnknownRecord returns a record with every field unknown, used when the
// catalog has no match.
func UnknownRecord() *BibliographicRecord {
	return &BibliographicRecord{Source: "none"}
}

// Set assigns a canonical field. Author values are appended. It returns false
// for names that are not bibliographic fields.
func (r *BibliographicRecord) Set(field, value string) bool {
	fv := Known(value)
	switch field {
	case FieldTitle:
		r.Title = fv
	case FieldAuthor:
		if fv.Known {
			r.Authors = append(r.Authors, fv.Value)
		}
	case FieldISBN:
		r.ISBN = fv
	case FieldOCLCNumber:
		r.OCLCNumber = fv
	case FieldFormat:
		r.Format = fv
	case FieldPublisher:
		r.Publisher = fv
	case FieldPublicationYear:
		r.PublicationYear = fv
	case FieldPublicationPlace:
		r.PublicationPlace = fv
	case FieldPrice:
		r.ListPrice = fv
	default:
		return false
	}
	return true
}

// Get returns the value of a canonical field. Authors are joined with "; ".
func (r *BibliographicRecord) Get(field string) FieldValue {
	switch field {
	case FieldTitle:
		return r.Title
	case FieldAuthor:
		return Known(strings.Join(r.Authors, "; "))
	case FieldISBN:
		return r.ISBN
	case FieldOCLCNumber:
		return r.OCLCNumber
	case FieldFormat:
		return r.Format
	case FieldPublisher:
		return r.Publisher
	case FieldPublicationYear:
		return r.PublicationYear
	case FieldPublicationPlace:
		return r.PublicationPlace
	case FieldPrice:
		return r.ListPrice
	}
	return Unknown()
}

// Fields returns every bibliographic field, including unknown ones.
func (r *BibliographicRecord) Fields() map[string]FieldValue {
	out := make(map[string]FieldValue, len(BibliographicFields))
	for _, f := range BibliographicFields {
		out[f] = r.Get(f)
	}
	return out
}

// UnknownFields lists the bibliographic fields with no value, in canonical order.
func (r *BibliographicRecord) UnknownFields() []string {
	var out []string
	for _, f := range BibliographicFields {
		if !r.Get(f).Known {
			out = append(out, f)
		}
	}
	return out
}

// MarketplaceRecord holds optional commerce data for an item.
type MarketplaceRecord struct {
	Source    string
	Price     FieldValue
	Currency  FieldValue
	CoverURL  FieldValue
	Available *bool
}

// Fields returns every marketplace field, including unknown ones.
func (m *MarketplaceRecord) Fields() map[string]FieldValue {
	availability := Unknown()
	if m.Available != nil {
		availability = Known(strconv.FormatBool(*m.Available))
	}
	return map[string]FieldValue{
		FieldPrice:        m.Price,
		FieldCurrency:     m.Currency,
		FieldCoverURL:     m.CoverURL,
		FieldAvailability: availability,
	}
}

// BatchItem is one line of batch input.
type BatchItem struct {
	Identifier     string            `json:"identifier"`
	IdentifierType IdentifierType    `json:"identifier_type,omitempty"`
	MaterialType   string            `json:"material_type"`
	VendorCode     string            `json:"vendor_code"`
	FundCode       string            `json:"fund_code"`
	Overrides      map[string]string `json:"overrides,omitempty"`
}

// OrderFields returns the caller-supplied fields for the merge: the overrides
// plus vendor and fund codes. Blank values are dropped.
func (b BatchItem) OrderFields() map[string]string {
	out := make(map[string]string, len(b.Overrides)+2)
	for k, v := range b.Overrides {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if v := strings.TrimSpace(b.VendorCode); v != "" {
		out[FieldVendor] = v
	}
	if v := strings.TrimSpace(b.FundCode); v != "" {
		out[FieldFund] = v
	}
	return out
}

// POLDocument is the merged, validated purchase order line ready for the ILS.
type POLDocument struct {
	MaterialType string                 `json:"material_type"`
	Identifier   Identifier             `json:"identifier"`
	Fields       map[string]string      `json:"fields"`
	Provenance   map[string]FieldSource `json:"provenance"`
}

// Get returns a field value or "".
func (d *POLDocument) Get(field string) string {
	return d.Fields[field]
}

// ErrorDetail describes why an item failed.
type ErrorDetail struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// SubmissionResult is the recorded outcome of one batch item.
type SubmissionResult struct {
	Index        int          `json:"index" db:"item_index"`
	Identifier   string       `json:"identifier" db:"identifier"`
	MaterialType string       `json:"material_type" db:"material_type"`
	VendorCode   string       `json:"vendor_code" db:"vendor_code"`
	Title        string       `json:"title,omitempty" db:"title"`
	Status       ResultStatus `json:"status" db:"status"`
	POLNumber    string       `json:"pol_number,omitempty" db:"pol_number"`
	State        ItemState    `json:"state" db:"state"`
	FailedStage  Stage        `json:"failed_stage,omitempty" db:"failed_stage"`
	Attempts     int          `json:"attempts" db:"attempts"`
	Error        *ErrorDetail `json:"error,omitempty" db:"-"`
	Warnings     []string     `json:"warnings,omitempty" db:"-"`
}

// BatchSummary counts results by outcome.
type BatchSummary struct {
	Total        int `json:"total"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	NotAttempted int `json:"not_attempted"`
	Skipped      int `json:"skipped_duplicates"`
	Validated    int `json:"validated"`
}

// BatchReport is the ordered outcome of a whole run.
type BatchReport struct {
	RunID       uuid.UUID          `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	DryRun      bool               `json:"dry_run"`
	Aborted     bool               `json:"aborted"`
	AbortReason string             `json:"abort_reason,omitempty"`
	Results     []SubmissionResult `json:"results"`
	Summary     BatchSummary       `json:"summary"`
}

// Summarize recomputes Summary from Results.
func (r *BatchReport) Summarize() {
	s := BatchSummary{Total: len(r.Results)}
	for i := range r.Results {
		switch r.Results[i].Status {
		case ResultStatusSucceeded:
			s.Succeeded++
		case ResultStatusNotAttempted:
			s.NotAttempted++
		case ResultStatusSkippedDuplicate:
			s.Skipped++
		case ResultStatusValidated:
			s.Validated++
		default:
			s.Failed++
		}
	}
	r.Summary = s
}

// HasFailures reports whether the run aborted or any item failed.
func (r *BatchReport) HasFailures() bool {
	if r.Aborted {
		return true
	}
	for i := range r.Results {
		if r.Results[i].Status.IsFailure() {
			return true
		}
	}
	return false
}

// BatchRun is the persisted header of a run.
type BatchRun struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Status       RunStatus  `json:"status" db:"status"`
	Source       string     `json:"source" db:"source"`
	DryRun       bool       `json:"dry_run" db:"dry_run"`
	TotalItems   int        `json:"total_items" db:"total_items"`
	Succeeded    int        `json:"succeeded" db:"succeeded"`
	Failed       int        `json:"failed" db:"failed"`
	NotAttempted int        `json:"not_attempted" db:"not_attempted"`
	AbortReason  string     `json:"abort_reason,omitempty" db:"abort_reason"`
	ReportKey    string     `json:"report_key,omitempty" db:"report_key"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// LedgerEntry records a POL created for a vendor and identifier.
type LedgerEntry struct {
	VendorCode string    `json:"vendor_code" db:"vendor_code"`
	Identifier string    `json:"identifier" db:"identifier"`
	POLNumber  string    `json:"pol_number" db:"pol_number"`
	RunID      uuid.UUID `json:"run_id" db:"run_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
