package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"polgen/internal/domain"
	"polgen/internal/handler"
	"polgen/internal/service"
	"polgen/internal/template"
	"polgen/mocks"
)

func TestTemplateHandler_List(t *testing.T) {
	h := handler.NewTemplateHandler(template.NewResolver(), new(mocks.MockBatchService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/templates", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"material_type":"book"`)
}

func TestTemplateHandler_Get(t *testing.T) {
	h := handler.NewTemplateHandler(template.NewResolver(), new(mocks.MockBatchService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "material_type", Value: "book"}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/templates/book", nil)

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "book", data["material_type"])
	assert.NotEmpty(t, data["fields"])
}

func TestTemplateHandler_Get_Unknown(t *testing.T) {
	h := handler.NewTemplateHandler(template.NewResolver(), new(mocks.MockBatchService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "material_type", Value: "hologram"}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/templates/hologram", nil)

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_MATERIAL_TYPE", decodeResponse(t, w).Error.Code)
}

func TestTemplateHandler_Preview(t *testing.T) {
	batches := new(mocks.MockBatchService)
	h := handler.NewTemplateHandler(template.NewResolver(), batches)

	item := domain.BatchItem{Identifier: "9780306406157", MaterialType: "book", VendorCode: "AMAZON", FundCode: "F100"}
	batches.On("Preview", mock.Anything, item).Return(&service.Preview{
		Result: domain.SubmissionResult{Identifier: item.Identifier, Status: domain.ResultStatusValidated},
	}, nil)

	body, _ := json.Marshal(item)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/pol/preview", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Preview(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"validated"`)
	batches.AssertExpectations(t)
}

func TestTemplateHandler_Preview_InvalidIdentifier(t *testing.T) {
	batches := new(mocks.MockBatchService)
	h := handler.NewTemplateHandler(template.NewResolver(), batches)

	batches.On("Preview", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidIdentifier)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/pol/preview", bytes.NewReader([]byte(`{"identifier":"x"}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Preview(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplateHandler_Preview_MalformedBody(t *testing.T) {
	h := handler.NewTemplateHandler(template.NewResolver(), new(mocks.MockBatchService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/pol/preview", bytes.NewReader([]byte(`{`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Preview(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeResponse(t, w).Error.Code)
}
