package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"polgen/internal/handler"
	"polgen/internal/router"
	"polgen/internal/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes batch submission, run status, reports, templates and
single-item previews over HTTP. Batches are queued and run in the background;
/api/v1 requires a bearer token minted with "polgen token".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), g)
		},
	}
}

func serve(parent context.Context, g *globals) error {
	cfg := g.cfg
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(parent)
	defer stop()

	launcher := service.NewBatchLauncher(a.batches, service.LauncherConfig{
		QueueSize:         cfg.Server.QueueSize,
		MaxConcurrentRuns: cfg.Server.MaxConcurrentRuns,
		RunTimeout:        cfg.Server.RunTimeout,
	})
	launcherDone := make(chan struct{})
	go func() {
		defer close(launcherDone)
		launcher.Start(ctx)
	}()

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWT)
	runSvc := service.NewRunService(a.runs)

	// Initialize handlers
	batchH := handler.NewBatchHandler(launcher, runSvc)
	templateH := handler.NewTemplateHandler(a.templates, a.batches)
	healthH := handler.NewHealthHandler(a.readinessChecks())

	// Setup router
	r := router.Setup(authSvc, batchH, templateH, healthH, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("cli.serve: server starting", "addr", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-launcherDone
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("cli.serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("cli.serve: graceful shutdown failed", "error", err)
	}
	<-launcherDone
	return nil
}
