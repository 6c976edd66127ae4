package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/dispatcher"
	"github.com/kweku/ai-procurement/internal/application/service"
	appworkflow "github.com/kweku/ai-procurement/internal/application/workflow"
	"github.com/kweku/ai-procurement/internal/config"
	"github.com/kweku/ai-procurement/internal/domain/event"
	"github.com/kweku/ai-procurement/internal/infrastructure/docs"
	extopenai "github.com/kweku/ai-procurement/internal/infrastructure/external/openai"
	"github.com/kweku/ai-procurement/internal/infrastructure/persistence/repository"
	"github.com/kweku/ai-procurement/internal/infrastructure/persistence/sqlite"
	"github.com/kweku/ai-procurement/internal/infrastructure/storage"
	httpserver "github.com/kweku/ai-procurement/internal/interfaces/http"
	"github.com/kweku/ai-procurement/internal/pipeline"
	"github.com/kweku/ai-procurement/internal/purchaseorder"
	"github.com/kweku/ai-procurement/pkg/database"
	"github.com/kweku/ai-procurement/pkg/utils"
)

func main() {
	// Local overrides for development; ignored when absent
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting procurement approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	// Repositories
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	decisionRepo := repository.NewDecisionRepository(db.DB, logger)
	jobRepo := repository.NewJobRepository(db.DB, logger)
	orderRepo := repository.NewPurchaseOrderRepository(db.DB, logger)

	// Document storage and extraction
	fileStorage, err := storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	converter := docs.NewPDFConverter(cfg.Extractor.MaxPages, logger)
	extractor := extopenai.NewExtractor(extopenai.Config{
		APIKey:      cfg.Extractor.APIKey,
		BaseURL:     cfg.Extractor.BaseURL,
		Model:       cfg.Extractor.Model,
		Temperature: cfg.Extractor.Temperature,
		MaxTokens:   cfg.Extractor.MaxTokens,
	}, converter, fileStorage, logger)

	poWriter, err := purchaseorder.NewExcelWriter(cfg.Orders.OutputDir, cfg.Orders.CompanyName, logger)
	if err != nil {
		logger.Fatal("Failed to initialize purchase order writer", zap.Error(err))
	}

	// Event dispatcher with audit-log handlers
	kvLogger := utils.NewKVLogger(logger)
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	registerEventHandlers(disp, logger)

	// Workflow and services
	factory := appworkflow.NewFactory(cfg.Workflow.ApprovalThreshold)
	engine := appworkflow.NewEngine(factory, requestRepo, txManager, disp, logger)

	requestService := service.NewRequestService(
		engine,
		factory,
		requestRepo,
		decisionRepo,
		orderRepo,
		jobRepo,
		txManager,
		fileStorage,
		poWriter,
		nil, // pipeline attached below
		disp,
		logger,
	)
	queryService := service.NewQueryService(factory, requestRepo, decisionRepo, jobRepo, orderRepo)

	// Processing pipeline
	pipe := pipeline.New(pipeline.Config{
		QueueCapacity:  cfg.Pipeline.QueueCapacity,
		WorkerCount:    cfg.Pipeline.WorkerCount,
		AdapterTimeout: cfg.Extractor.Timeout,
		Validator: pipeline.ValidatorConfig{
			AmountTolerance: cfg.Pipeline.AmountTolerance,
			AcceptThreshold: cfg.Pipeline.AcceptThreshold,
			ReviewThreshold: cfg.Pipeline.ReviewThreshold,
		},
	}, extractor, jobRepo, requestRepo, orderRepo, requestService, disp, logger)
	requestService.SetEnqueuer(pipe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe.Start(ctx)

	if err := extractor.HealthCheck(ctx); err != nil {
		logger.Warn("Extraction endpoint not reachable at startup", zap.Error(err))
	}

	// HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, requestService, queryService, pipe, kvLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	pipe.Stop()
	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := disp.Close(); err != nil {
		logger.Error("Dispatcher shutdown error", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// registerEventHandlers wires the audit-log sink for workflow events
func registerEventHandlers(disp dispatcher.Dispatcher, logger *zap.Logger) {
	logEvent := func(ctx context.Context, evt *event.Event) error {
		logger.Info("workflow event",
			zap.String("type", evt.Type.String()),
			zap.String("event_id", evt.ID),
			zap.String("request_id", evt.RequestID),
			zap.String("job_id", evt.JobID),
			zap.Any("payload", evt.Payload),
		)
		return nil
	}

	for _, t := range []event.Type{
		event.TypeRequestSubmitted,
		event.TypeApprovalDecided,
		event.TypeRequestRejected,
		event.TypePOGenerated,
		event.TypePODispatched,
		event.TypeReceiptUploaded,
		event.TypeStatusChanged,
		event.TypeExtractionCompleted,
		event.TypeValidationCompleted,
		event.TypeJobFailed,
	} {
		disp.SubscribeNamed(t, "audit-log", logEvent)
	}
}
