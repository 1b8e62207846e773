package router

import (
	"github.com/gin-gonic/gin"

	"polgen/internal/handler"
	"polgen/internal/middleware"
	"polgen/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	batchH *handler.BatchHandler,
	templateH *handler.TemplateHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if len(corsOrigins) > 0 {
		r.Use(middleware.CORS(corsOrigins))
	}

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Protected routes - require valid service token
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(authSvc))

	read := middleware.RequireScope(service.ScopeBatchesRead)
	write := middleware.RequireScope(service.ScopeBatchesWrite)

	batches := v1.Group("/batches")
	batches.POST("", write, batchH.Create)
	batches.GET("", read, batchH.List)
	batches.GET("/:id", read, batchH.Get)
	batches.GET("/:id/report", read, batchH.Report)
	batches.GET("/:id/report.csv", read, batchH.Report)

	v1.GET("/templates", read, templateH.List)
	v1.GET("/templates/:material_type", read, templateH.Get)
	v1.POST("/pol/preview", read, templateH.Preview)

	return r
}
