package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"stockpulse/internal/config"
	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/infrastructure"
	custommw "stockpulse/internal/middleware"
	"stockpulse/internal/operations"
	"stockpulse/internal/schema"
	"stockpulse/internal/services"
	"stockpulse/internal/storage"
	handlers "stockpulse/internal/transport/http"
	ws "stockpulse/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apperrors.ErrorHandler
	Schemas       *schema.Registry
	Store         storage.Store
	WebSocketHub  *ws.Hub
	Manager       *operations.Manager
	JobStore      *operations.MemoryJobStore
	JobQueue      *operations.JobQueue
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Upload  *services.UploadService
	Dataset *services.DatasetService
	Health  *services.HealthService
}

// NewApplication loads the configuration and logger and builds the
// application from them
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(ctx, cfg, logger)
}

// New builds an application from an already loaded configuration
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "application_starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("storage_driver", cfg.Storage.Driver))

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       businessMetrics,
		ErrorHandler:  apperrors.NewErrorHandler(logger, false),
	}

	if err := a.initializeServices(ctx); err != nil {
		a.release(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices wires storage, the websocket hub, the operation manager
// and the job queue into the services
func (a *Application) initializeServices(ctx context.Context) error {
	schemas, err := loadSchemas(a.Config.Processing.SchemaFile)
	if err != nil {
		return err
	}
	a.Schemas = schemas

	store, err := storage.Open(ctx, a.Config.Storage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.Store = store

	hubMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Config.WebSocket, hubMetrics, a.Logger)

	opConfig := operations.NewConfigBuilder().
		WithQueueDepth(a.Config.Processing.QueueDepth).
		WithRetention(a.Config.Processing.SnapshotTTL, a.Config.Processing.JobRetention).
		Build()

	manager, err := operations.NewManager(a.WebSocketHub, nil, schemas, opConfig, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create operation manager: %w", err)
	}
	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create operation tracer: %w", err)
	}
	manager.SetTracer(tracer)
	a.Manager = manager

	a.JobStore = operations.NewMemoryJobStore()
	a.JobQueue = operations.NewJobQueue(opConfig.QueueDepth, a.JobStore, manager, a.Logger)

	upload := services.NewUploadService(store, schemas, a.Logger)
	upload.SetQueue(a.JobQueue)
	a.JobQueue.SetResultSink(upload)

	a.Services = &ServiceContainer{
		Upload:  upload,
		Dataset: services.NewDatasetService(store, schemas, a.Logger),
		Health:  services.NewHealthService(config.AppVersion, store, a.JobQueue, a.WebSocketHub, a.Logger),
	}
	return nil
}

func loadSchemas(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.DefaultRegistry(), nil
	}
	schemas, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return schemas, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// The websocket route only gets middleware that leaves the
	// ResponseWriter unwrapped so the upgrade can hijack it
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	r.Handle(config.WebSocketEndpoint, ws.NewHandler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.Logger))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics)
		if err != nil {
			a.Logger.Error("otel_middleware_unavailable", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.ErrorHandler))
		r.Use(custommw.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(custommw.CORSFromSecurity(a.Config.Security)))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(a.Config.Security.RateLimit, a.Logger).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := custommw.NewValidator(a.ErrorHandler, a.Logger)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)

		// Uploads are read in full before they are queued, so they get the
		// server timeouts only
		uploadHandler := handlers.NewUploadHandler(a.Services.Upload, validator, a.ErrorHandler,
			a.Config.Processing.MaxUploadBytes, a.Logger)
		r.Mount("/uploads", uploadHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(a.Config.Server.ReadTimeout))

			datasetHandler := handlers.NewDatasetHandler(a.Services.Dataset, validator, a.ErrorHandler, a.Logger)
			r.Mount("/datasets", datasetHandler.Routes())
			r.Mount("/metrics", datasetHandler.MetricsRoutes())
			r.Mount("/schema", datasetHandler.SchemaRoutes())
			r.Mount("/operations", handlers.NewOperationsHandler(a.Manager, a.ErrorHandler, a.Logger).Routes())
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the background components: the websocket hub and the job
// queue worker. The worker outlives ctx; Stop shuts it down.
func (a *Application) Start(ctx context.Context) {
	a.WebSocketHub.Start()
	a.JobQueue.Start(context.WithoutCancel(ctx))
}

// Run serves HTTP until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails, then shuts everything down
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "server_listening",
			slog.String("address", a.Server.Addr),
			slog.String("metrics", config.MetricsEndpoint),
			slog.String("websocket", config.WebSocketEndpoint))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.runJanitor(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(gctx, "shutdown_requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// runJanitor drops expired operation snapshots and finished jobs every
// janitor period until ctx ends
func (a *Application) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(a.Config.Processing.JanitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cleanup(ctx)
		}
	}
}

func (a *Application) cleanup(ctx context.Context) {
	snapshots := a.Manager.GetBroadcaster().CleanupOldOperations(ctx, a.Config.Processing.SnapshotTTL)
	jobs, err := a.JobStore.CleanupOldJobs(a.Config.Processing.JobRetention)
	if err != nil {
		infrastructure.WithError(a.Logger, err).WarnContext(ctx, "job_cleanup_failed")
	}
	if snapshots > 0 || jobs > 0 {
		a.Logger.InfoContext(ctx, "janitor_cleanup",
			slog.Int("snapshots_removed", snapshots),
			slog.Int("jobs_removed", jobs))
	}
}

// Stop gracefully stops the application: the server first so no new
// uploads arrive, then the queue, the hub, storage and telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "application_stopping")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.JobQueue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.ErrorContext(ctx, "job_queue_stop_failed", slog.String("error", err.Error()))
	}

	a.release(shutdownCtx)

	a.Logger.InfoContext(ctx, "application_stopped")
	return errors.Join(errs...)
}

// release frees whatever initialization managed to create
func (a *Application) release(ctx context.Context) {
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.Manager != nil {
		a.Manager.GetBroadcaster().Stop()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "otel_shutdown_failed", slog.String("error", err.Error()))
		}
	}
}
