package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"polgen/internal/catalog"
	"polgen/internal/catalog/openlibrary"
	"polgen/internal/catalog/worldcat"
	"polgen/internal/config"
	"polgen/internal/email/noop"
	"polgen/internal/email/ses"
	noopevents "polgen/internal/events/noop"
	"polgen/internal/events/rabbitmq"
	"polgen/internal/handler"
	"polgen/internal/ils/alma"
	"polgen/internal/marketplace"
	"polgen/internal/port"
	"polgen/internal/repository/memory"
	"polgen/internal/repository/postgres"
	"polgen/internal/retry"
	"polgen/internal/service"
	s3storage "polgen/internal/storage/s3"
	"polgen/internal/template"
)

func init() {
	catalog.RegisterProvider("worldcat", worldcat.NewProvider)
	catalog.RegisterProvider("openlibrary", openlibrary.NewProvider)
}

// app holds the wired pipeline for one process.
type app struct {
	cfg       *config.Config
	templates port.TemplateResolver
	ils       *alma.Client
	runs      port.BatchRunRepository
	ledger    port.POLLedger
	batches   service.BatchService
	db        *sqlx.DB
	events    port.EventPublisher
}

func loadTemplates(cfg *config.TemplatesConfig) (port.TemplateResolver, error) {
	if cfg.Path == "" {
		return template.NewResolver(), nil
	}
	r, err := template.LoadFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// newApp wires every component named by cfg.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var err error
	if a.templates, err = loadTemplates(&cfg.Templates); err != nil {
		return nil, err
	}

	fetcher, err := catalog.NewFetcher(&cfg.Catalog)
	if err != nil {
		return nil, err
	}
	enricher, err := marketplace.New(&cfg.Marketplace)
	if err != nil {
		return nil, err
	}
	a.ils = alma.NewClient(&cfg.ILS)

	if err := a.openStore(); err != nil {
		return nil, err
	}

	sinks, err := a.buildSinks()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.batches = service.NewBatchService(a.templates, fetcher, enricher, a.ils, a.ledger, sinks, service.BatchConfig{
		Concurrency:   cfg.Batch.Concurrency,
		CheckLedger:   cfg.Batch.CheckLedger,
		CheckExisting: cfg.ILS.CheckExisting,
		Retry:         retry.FromConfig(cfg.Retry),
	})
	return a, nil
}

func (a *app) openStore() error {
	switch strings.ToLower(a.cfg.Store.Driver) {
	case "", "memory":
		a.runs = memory.NewBatchRunRepo()
		a.ledger = memory.NewPOLLedger()
	case "postgres":
		db, err := postgres.NewDB(&a.cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		a.runs = postgres.NewBatchRunRepo(db)
		a.ledger = postgres.NewPOLLedgerRepo(db)
	default:
		return fmt.Errorf("unknown store driver: %s", a.cfg.Store.Driver)
	}
	return nil
}

func (a *app) buildSinks() (*service.RunSinks, error) {
	sinks := &service.RunSinks{
		Runs:          a.runs,
		Bucket:        a.cfg.S3.Bucket,
		Prefix:        a.cfg.S3.Prefix,
		PresignExpiry: a.cfg.S3.PresignExpiry,
	}

	if a.cfg.S3.Bucket != "" {
		storage, err := s3storage.NewS3Client(&a.cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		sinks.Storage = storage
	}

	switch strings.ToLower(a.cfg.Email.Provider) {
	case "ses":
		notifier, err := ses.NewSESNotifier(&a.cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
		sinks.Notifier = notifier
	default:
		sinks.Notifier = noop.NewNoopNotifier()
	}

	switch strings.ToLower(a.cfg.Events.Provider) {
	case "rabbitmq", "amqp":
		pub, err := rabbitmq.Dial(&a.cfg.Events)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to event broker: %w", err)
		}
		a.events = pub
	default:
		a.events = noopevents.NewPublisher()
	}
	sinks.Events = a.events

	return sinks, nil
}

// readinessChecks probes the database (when used) and the ILS.
func (a *app) readinessChecks() map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"ils": a.ils.Ping,
	}
	if a.db != nil {
		checks["database"] = a.db.PingContext
	}
	return checks
}

// Close releases the broker connection and the database pool.
func (a *app) Close() {
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("cli.app.Close: shutdown errors", "error", err)
	}
}
