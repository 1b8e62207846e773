package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"polgen/internal/batchinput"
	"polgen/internal/domain"
	"polgen/internal/middleware"
	"polgen/internal/report"
	"polgen/internal/service"
)

// maxUploadBytes bounds a batch upload.
const maxUploadBytes = 10 << 20

// BatchEnqueuer accepts batches for background processing.
type BatchEnqueuer interface {
	Enqueue(items []domain.BatchItem, opts service.RunOptions) (uuid.UUID, error)
}

// BatchHandler handles batch run endpoints.
type BatchHandler struct {
	launcher BatchEnqueuer
	runs     service.RunService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(launcher BatchEnqueuer, runs service.RunService) *BatchHandler {
	return &BatchHandler{launcher: launcher, runs: runs}
}

// CreateBatchRequest is the JSON body of POST /batches.
type CreateBatchRequest struct {
	Items  []domain.BatchItem `json:"items" binding:"required,min=1"`
	DryRun bool               `json:"dry_run"`
	Source string             `json:"source"`
}

// CreateBatchResponse acknowledges an accepted batch.
type CreateBatchResponse struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
	Items  int       `json:"items"`
}

// Create handles POST /api/v1/batches. The body is either a JSON request or a
// CSV/XLSX upload; query parameters material_type, vendor_code and fund_code
// fill blank columns of an upload.
func (h *BatchHandler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var (
		items  []domain.BatchItem
		dryRun bool
		source string
	)

	if c.ContentType() == "application/json" {
		var req CreateBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBodyError(c, err)
			return
		}
		items, dryRun, source = req.Items, req.DryRun, req.Source
	} else {
		format, err := uploadFormat(c)
		if err != nil {
			HandleError(c, err)
			return
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(c.Request.Body); err != nil {
			respondBodyError(c, err)
			return
		}
		items, err = batchinput.Read(&buf, format, batchinput.Options{Defaults: domain.BatchItem{
			MaterialType: c.Query("material_type"),
			VendorCode:   c.Query("vendor_code"),
			FundCode:     c.Query("fund_code"),
		}})
		if err != nil {
			HandleError(c, err)
			return
		}
		dryRun, _ = strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
		source = c.Query("source")
	}

	if source == "" {
		source = "api:" + middleware.GetSubject(c)
	}
	runID, err := h.launcher.Enqueue(items, service.RunOptions{DryRun: dryRun, Source: source})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, CreateBatchResponse{RunID: runID, Status: string(domain.RunStatusRunning), Items: len(items)})
}

func uploadFormat(c *gin.Context) (batchinput.Format, error) {
	if f := c.Query("format"); f != "" {
		return batchinput.ParseFormat(f)
	}
	switch ct := c.ContentType(); {
	case ct == "text/csv":
		return batchinput.FormatCSV, nil
	case strings.Contains(ct, "spreadsheetml"):
		return batchinput.FormatXLSX, nil
	case ct == "application/marc":
		return batchinput.FormatMARC, nil
	default:
		return "", fmt.Errorf("unsupported content type %q: %w", ct, domain.ErrInvalidInput)
	}
}

// Get handles GET /api/v1/batches/:id.
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	detail, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, detail)
}

// List handles GET /api/v1/batches.
func (h *BatchHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	runs, total, err := h.runs.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Report handles GET /api/v1/batches/:id/report (?format=csv|json|xlsx) and
// its /report.csv alias.
func (h *BatchHandler) Report(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	format := report.FormatCSV
	if f := c.Query("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
			return
		}
		format = parsed
	}

	rep, err := h.runs.Report(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		HandleError(c, fmt.Errorf("handler.BatchHandler.Report: %w", err))
		return
	}

	filename := report.BuildFilename("polgen_run_"+rep.RunID.String()[:8], rep.StartedAt, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid batch run ID")
		return uuid.Nil, false
	}
	return id, true
}

func respondBodyError(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		RespondError(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "batch upload exceeds 10 MB")
		return
	}
	RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}
