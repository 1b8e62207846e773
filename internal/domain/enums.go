package domain

// ItemState is the position of a batch item in the POL pipeline.
type ItemState string

const (
	ItemStatePending          ItemState = "pending"
	ItemStateTemplateResolved ItemState = "template_resolved"
	ItemStateMetadataFetched  ItemState = "metadata_fetched"
	ItemStateBuilt            ItemState = "built"
	ItemStateValidated        ItemState = "validated"
	ItemStateSubmitted        ItemState = "submitted"
	ItemStateSucceeded        ItemState = "succeeded"
	ItemStateFailed           ItemState = "failed"
)

// itemTransitions lists the forward moves allowed from each state. Failed is
// reachable from every non-terminal state and is added in CanTransitionTo.
var itemTransitions = map[ItemState][]ItemState{
	ItemStatePending:          {ItemStateTemplateResolved},
	ItemStateTemplateResolved: {ItemStateMetadataFetched},
	ItemStateMetadataFetched:  {ItemStateBuilt},
	ItemStateBuilt:            {ItemStateValidated},
	ItemStateValidated:        {ItemStateSubmitted, ItemStateSucceeded},
	ItemStateSubmitted:        {ItemStateSucceeded},
}

// IsTerminal reports whether no further transitions are possible.
func (s ItemState) IsTerminal() bool {
	return s == ItemStateSucceeded || s == ItemStateFailed
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ItemState) CanTransitionTo(next ItemState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == ItemStateFailed {
		return true
	}
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ResultStatus is the recorded outcome of one batch item.
type ResultStatus string

const (
	ResultStatusSucceeded        ResultStatus = "succeeded"
	ResultStatusFailedValidation ResultStatus = "failed-validation"
	ResultStatusFailedRejected   ResultStatus = "failed-rejected"
	ResultStatusFailedNetwork    ResultStatus = "failed-network"
	ResultStatusFailedFatal      ResultStatus = "failed-fatal"
	ResultStatusNotAttempted     ResultStatus = "not-attempted"
	ResultStatusSkippedDuplicate ResultStatus = "skipped-duplicate"
	ResultStatusValidated        ResultStatus = "validated"
)

// IsFailure reports whether the status counts against the run's exit status.
func (s ResultStatus) IsFailure() bool {
	switch s {
	case ResultStatusSucceeded, ResultStatusSkippedDuplicate, ResultStatusValidated:
		return false
	default:
		return true
	}
}

// IdentifierType tells which identifier scheme an item uses.
type IdentifierType string

const (
	IdentifierTypeAuto IdentifierType = "auto"
	IdentifierTypeISBN IdentifierType = "isbn"
	IdentifierTypeOCLC IdentifierType = "oclc"
)

// FieldSource names the merge layer a POL field value came from.
type FieldSource string

const (
	FieldSourceOrder       FieldSource = "order"
	FieldSourceCatalog     FieldSource = "catalog"
	FieldSourceMarketplace FieldSource = "marketplace"
	FieldSourceTemplate    FieldSource = "template"
)

// Stage names the pipeline step an item failed in.
type Stage string

const (
	StageIdentifier Stage = "identifier"
	StageTemplate   Stage = "template"
	StageFetch      Stage = "fetch"
	StageEnrich     Stage = "enrich"
	StageBuild      Stage = "build"
	StageDuplicate  Stage = "duplicate_check"
	StageSubmit     Stage = "submit"
	StagePreflight  Stage = "preflight"
)

// RunStatus is the lifecycle of a persisted batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
)
