package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/handler"
	"polgen/internal/router"
	"polgen/internal/service"
	"polgen/internal/template"
	"polgen/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	engine *gin.Engine
	auth   service.AuthService
	runs   *mocks.MockRunService
}

func newFixture() *fixture {
	auth := service.NewAuthService(config.JWTConfig{Secret: "router-test-secret", TokenExpiry: time.Hour, Issuer: "polgen"})
	runs := new(mocks.MockRunService)
	batchH := handler.NewBatchHandler(new(mocks.MockBatchEnqueuer), runs)
	templateH := handler.NewTemplateHandler(template.NewResolver(), new(mocks.MockBatchService))
	healthH := handler.NewHealthHandler(nil)
	return &fixture{
		engine: router.Setup(auth, batchH, templateH, healthH, []string{"https://acq.example.edu"}),
		auth:   auth,
		runs:   runs,
	}
}

func (f *fixture) token(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, err := f.auth.IssueToken(service.TokenInput{Subject: "router-test", Scopes: scopes})
	require.NoError(t, err)
	return tok.Token
}

func (f *fixture) do(method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRouter_Healthz(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/templates", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Templates(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/templates/book", f.token(t, service.ScopeBatchesRead))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"material_type":"book"`)
}

func TestRouter_ListBatches(t *testing.T) {
	f := newFixture()
	f.runs.On("List", mock.Anything, 0, 20).Return([]domain.BatchRun{}, 0, nil)

	w := f.do(http.MethodGet, "/api/v1/batches", f.token(t))
	assert.Equal(t, http.StatusOK, w.Code)
	f.runs.AssertExpectations(t)
}

func TestRouter_CreateRequiresWriteScope(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/api/v1/batches", f.token(t, service.ScopeBatchesRead))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
