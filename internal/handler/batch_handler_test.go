package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"polgen/internal/domain"
	"polgen/internal/handler"
	"polgen/internal/service"
	"polgen/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBatchHandler_Create_JSON(t *testing.T) {
	enqueuer := new(mocks.MockBatchEnqueuer)
	h := handler.NewBatchHandler(enqueuer, new(mocks.MockRunService))

	items := []domain.BatchItem{{Identifier: "9780306406157", MaterialType: "book", VendorCode: "AMAZON", FundCode: "F100"}}
	runID := uuid.New()
	enqueuer.On("Enqueue", items, service.RunOptions{DryRun: true, Source: "nightly"}).Return(runID, nil)

	body, _ := json.Marshal(map[string]interface{}{"items": items, "dry_run": true, "source": "nightly"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/batches", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, runID.String(), data["run_id"])
	assert.Equal(t, float64(1), data["items"])
	enqueuer.AssertExpectations(t)
}

func TestBatchHandler_Create_JSONWithoutItems(t *testing.T) {
	enqueuer := new(mocks.MockBatchEnqueuer)
	h := handler.NewBatchHandler(enqueuer, new(mocks.MockRunService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(`{"items":[]}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	enqueuer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestBatchHandler_Create_CSVUpload(t *testing.T) {
	enqueuer := new(mocks.MockBatchEnqueuer)
	h := handler.NewBatchHandler(enqueuer, new(mocks.MockRunService))

	runID := uuid.New()
	enqueuer.On("Enqueue",
		mock.MatchedBy(func(items []domain.BatchItem) bool {
			return len(items) == 2 && items[0].MaterialType == "book" && items[1].VendorCode == "AMAZON"
		}),
		mock.MatchedBy(func(opts service.RunOptions) bool {
			return opts.DryRun && opts.Source == "api:"
		}),
	).Return(runID, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/batches?material_type=book&vendor_code=AMAZON&dry_run=true",
		strings.NewReader("identifier\n9780306406157\n9780262033848\n"))
	c.Request.Header.Set("Content-Type", "text/csv")

	h.Create(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	enqueuer.AssertExpectations(t)
}

func TestBatchHandler_Create_UnsupportedContentType(t *testing.T) {
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), new(mocks.MockRunService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader("<items/>"))
	c.Request.Header.Set("Content-Type", "application/xml")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeResponse(t, w).Error.Code)
}

func TestBatchHandler_Create_QueueFull(t *testing.T) {
	enqueuer := new(mocks.MockBatchEnqueuer)
	h := handler.NewBatchHandler(enqueuer, new(mocks.MockRunService))
	enqueuer.On("Enqueue", mock.Anything, mock.Anything).Return(uuid.Nil, service.ErrQueueFull)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/batches",
		strings.NewReader(`{"items":[{"identifier":"9780306406157"}]}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "QUEUE_FULL", decodeResponse(t, w).Error.Code)
}

func TestBatchHandler_Get(t *testing.T) {
	runs := new(mocks.MockRunService)
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)

	id := uuid.New()
	runs.On("Get", mock.Anything, id).Return(&service.RunDetail{
		Run:     domain.BatchRun{ID: id, Status: domain.RunStatusCompleted},
		Results: []domain.SubmissionResult{{Index: 0, Status: domain.ResultStatusSucceeded, POLNumber: "POL-1"}},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/"+id.String(), nil)

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pol_number":"POL-1"`)
	runs.AssertExpectations(t)
}

func TestBatchHandler_Get_InvalidID(t *testing.T) {
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), new(mocks.MockRunService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/not-a-uuid", nil)

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeResponse(t, w).Error.Code)
}

func TestBatchHandler_Get_NotFound(t *testing.T) {
	runs := new(mocks.MockRunService)
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)

	id := uuid.New()
	runs.On("Get", mock.Anything, id).Return(nil, domain.ErrRunNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/"+id.String(), nil)

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decodeResponse(t, w).Error.Code)
}

func TestBatchHandler_List(t *testing.T) {
	runs := new(mocks.MockRunService)
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)

	runs.On("List", mock.Anything, 10, 5).Return([]domain.BatchRun{{ID: uuid.New()}}, 11, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches?offset=10&limit=5", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, handler.PagMeta{Total: 11, Offset: 10, Limit: 5}, *resp.Meta)
}

func TestBatchHandler_Report_CSV(t *testing.T) {
	runs := new(mocks.MockRunService)
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)

	id := uuid.New()
	rep := &domain.BatchReport{
		RunID:     id,
		StartedAt: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
		Results:   []domain.SubmissionResult{{Index: 0, Identifier: "9780306406157", Status: domain.ResultStatusSucceeded, POLNumber: "POL-1"}},
	}
	rep.Summarize()
	runs.On("Report", mock.Anything, id).Return(rep, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/"+id.String()+"/report.csv", nil)

	h.Report(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "polgen_run_"+id.String()[:8]+"_2024-03-15.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "\ufeffRow,Identifier"))
	assert.Contains(t, w.Body.String(), "POL-1")
}

func TestBatchHandler_Report_JSON(t *testing.T) {
	runs := new(mocks.MockRunService)
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)

	id := uuid.New()
	rep := &domain.BatchReport{RunID: id}
	runs.On("Report", mock.Anything, id).Return(rep, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/"+id.String()+"/report?format=json", nil)

	h.Report(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), id.String())
}

func TestBatchHandler_Report_InvalidFormat(t *testing.T) {
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), new(mocks.MockRunService))

	id := uuid.New()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/"+id.String()+"/report?format=pdf", nil)

	h.Report(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandler_Report_StillRunning(t *testing.T) {
	runs := new(mocks.MockRunService)
	h := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)

	id := uuid.New()
	runs.On("Report", mock.Anything, id).Return(nil, domain.ErrRunNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/batches/"+id.String()+"/report.csv", nil)

	h.Report(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
