package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/events"
	"github.com/phrazzld/scry-reader/internal/platform/extract"
	"github.com/phrazzld/scry-reader/internal/platform/postgres"
	"github.com/phrazzld/scry-reader/internal/platform/storage"
	"github.com/phrazzld/scry-reader/internal/service"
	"github.com/phrazzld/scry-reader/internal/service/auth"
	"github.com/phrazzld/scry-reader/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService      auth.JWTService
	documentService service.DocumentService

	eventEmitter     *events.InMemoryEventEmitter
	extractionRunner *task.ExtractionRunner
}

// newApplication wires stores, storage, the extraction pipeline and the
// services on top of an open database.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	sourceStore := postgres.NewPostgresSourceStore(db, logger)
	documentStore := postgres.NewPostgresDocumentStore(db, logger)

	files, err := storage.NewLocalStorage(cfg.Storage.RootDir, cfg.Storage.MaxUploadBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}

	extractor, err := extract.NewDefaultRegistry(
		cfg.Extraction.MaxDocumentBytes,
		cfg.Extraction.TikaURL,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractors: %w", err)
	}

	app.extractionRunner = setupExtraction(cfg, logger, db, sourceStore, files, extractor)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewExtractionEventHandler(app.extractionRunner, logger))

	app.documentService, err = service.NewDocumentService(
		postgres.NewTransactor(db, sourceStore, documentStore),
		sourceStore,
		files,
		extractor,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// setupExtraction builds the queue, the worker and the runner that owns them.
func setupExtraction(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	sources task.SourceLister,
	files task.FileOpener,
	extractor task.TextExtractor,
) *task.ExtractionRunner {
	queue := task.NewExtractionQueue(logger)

	worker := task.NewExtractionWorker(
		queue,
		postgres.NewJobScopeFactory(db, logger),
		files,
		extractor,
		logger,
		task.WithJobTimeout(time.Duration(cfg.Extraction.JobTimeoutSeconds)*time.Second),
	)

	runnerConfig := task.DefaultRunnerConfig()
	runnerConfig.RecoverOnStart = cfg.Extraction.RecoverOnStart

	return task.NewExtractionRunner(queue, worker, sources, runnerConfig, logger)
}

// Run starts the extraction runner and serves HTTP until ctx is cancelled.
// The HTTP server stops first so no new jobs arrive while the worker
// finishes the job in progress.
func (app *application) Run(ctx context.Context) error {
	if err := app.extractionRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start extraction runner: %w", err)
	}
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work. The database is closed by the caller.
func (app *application) cleanup() {
	if app.extractionRunner != nil {
		app.extractionRunner.Stop()
	}
	app.logger.Info("application shutdown completed")
}
