package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/aggregate"
	"github.com/billdesk/bill-audit/internal/config"
	"github.com/billdesk/bill-audit/internal/decision"
	"github.com/billdesk/bill-audit/internal/extract"
	"github.com/billdesk/bill-audit/internal/notify"
	"github.com/billdesk/bill-audit/internal/report"
	"github.com/billdesk/bill-audit/internal/repository"
	"github.com/billdesk/bill-audit/internal/server"
	"github.com/billdesk/bill-audit/internal/service"
	"github.com/billdesk/bill-audit/internal/similarity"
	"github.com/billdesk/bill-audit/internal/storage"
	"github.com/billdesk/bill-audit/internal/validate"
	"github.com/billdesk/bill-audit/pkg/database"
	"github.com/billdesk/bill-audit/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Local .env files supply LLM and Lark credentials in development.
	gotenv.Load()

	cfg, err := config.Load(*configPath)
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

	logger.Info("Starting bill audit service",
		zap.Int("port", cfg.Server.Port))

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

	if err := os.MkdirAll(cfg.Audit.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	employeeRepo := repository.NewEmployeeRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)

	encoder := similarity.NewOpenAIEncoder(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel, logger)
	validator := validate.New(validate.Thresholds{
		Name:    cfg.Validation.NameThreshold,
		Address: cfg.Validation.AddressThreshold,
	}, encoder, logger)
	aggregator := aggregate.New(cfg.CategoryClasses(), logger)

	auditService := service.NewAuditService(service.Deps{
		Config:      cfg,
		DB:          db,
		Employees:   employeeRepo,
		Audits:      auditRepo,
		Loader:      extract.NewLoader(cfg.Audit.ExtractedDir, logger),
		Validator:   validator,
		Aggregator:  aggregator,
		Adjudicator: decision.NewAdjudicator(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, logger),
		Sorter:      storage.NewFileSorter(cfg.Audit.ResourcesDir, cfg.Audit.OutputDir, logger),
		Reporter:    report.NewWriter(logger),
		Notifier:    notify.New(cfg.Lark, logger),
		Logger:      logger,
	})

	extractService := service.NewExtractService(
		cfg.Audit.ResourcesDir,
		cfg.Audit.ExtractedDir,
		extract.NewPDFReader(5, logger),
		extract.NewExtractor(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, logger),
		cfg.Audit.Workers,
		logger,
	)

	handlers := server.NewHandlers(auditService, extractService, auditRepo, employeeRepo, logger)
	srv := server.New(cfg.Server, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
