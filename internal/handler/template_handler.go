package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"polgen/internal/domain"
	"polgen/internal/port"
	"polgen/internal/service"
)

// TemplateHandler serves material-type templates and single-item previews.
type TemplateHandler struct {
	templates port.TemplateResolver
	batches   service.BatchService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templates port.TemplateResolver, batches service.BatchService) *TemplateHandler {
	return &TemplateHandler{templates: templates, batches: batches}
}

// TemplateResponse describes one material type.
type TemplateResponse struct {
	MaterialType string                      `json:"material_type"`
	Required     []string                    `json:"required"`
	Defaults     map[string]string           `json:"defaults"`
	Fields       map[string]domain.FieldSpec `json:"fields"`
}

func toTemplateResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{
		MaterialType: t.MaterialType(),
		Required:     t.Required(),
		Defaults:     t.Defaults(),
		Fields:       t.Fields(),
	}
}

// List handles GET /api/v1/templates.
func (h *TemplateHandler) List(c *gin.Context) {
	templates := h.templates.List()
	out := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	RespondOK(c, out)
}

// Get handles GET /api/v1/templates/:material_type.
func (h *TemplateHandler) Get(c *gin.Context) {
	t, err := h.templates.Resolve(c.Param("material_type"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, toTemplateResponse(t))
}

// Preview handles POST /api/v1/pol/preview: it builds and validates one item
// without submitting it.
func (h *TemplateHandler) Preview(c *gin.Context) {
	var item domain.BatchItem
	if err := c.ShouldBindJSON(&item); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	preview, err := h.batches.Preview(c.Request.Context(), item)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, preview)
}
