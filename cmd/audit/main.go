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
	"github.com/billdesk/bill-audit/internal/service"
	"github.com/billdesk/bill-audit/internal/similarity"
	"github.com/billdesk/bill-audit/internal/storage"
	"github.com/billdesk/bill-audit/internal/validate"
	"github.com/billdesk/bill-audit/pkg/database"
	"github.com/billdesk/bill-audit/pkg/utils"
)

// One-shot batch runner: optionally extract the raw PDFs, then audit
// everything under the extracted directory and exit.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	runExtract := flag.Bool("extract", false, "run PDF extraction before the audit")
	flag.Parse()

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runExtract {
		extractService := service.NewExtractService(
			cfg.Audit.ResourcesDir,
			cfg.Audit.ExtractedDir,
			extract.NewPDFReader(5, logger),
			extract.NewExtractor(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, logger),
			cfg.Audit.Workers,
			logger,
		)
		if err := extractService.Run(ctx); err != nil {
			logger.Fatal("Extraction failed", zap.Error(err))
		}
	}

	encoder := similarity.NewOpenAIEncoder(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel, logger)
	validator := validate.New(validate.Thresholds{
		Name:    cfg.Validation.NameThreshold,
		Address: cfg.Validation.AddressThreshold,
	}, encoder, logger)

	auditService := service.NewAuditService(service.Deps{
		Config:      cfg,
		DB:          db,
		Employees:   repository.NewEmployeeRepository(db.DB, logger),
		Audits:      repository.NewAuditRepository(db.DB, logger),
		Loader:      extract.NewLoader(cfg.Audit.ExtractedDir, logger),
		Validator:   validator,
		Aggregator:  aggregate.New(cfg.CategoryClasses(), logger),
		Adjudicator: decision.NewAdjudicator(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, logger),
		Sorter:      storage.NewFileSorter(cfg.Audit.ResourcesDir, cfg.Audit.OutputDir, logger),
		Reporter:    report.NewWriter(logger),
		Notifier:    notify.New(cfg.Lark, logger),
		Logger:      logger,
	})

	result, err := auditService.Run(ctx)
	if err != nil {
		logger.Fatal("Audit run failed", zap.Error(err))
	}

	fmt.Printf("Audit run #%d completed: %d groups, report at %s\n",
		result.RunID, len(result.Groups), result.ReportPath)
	fmt.Printf("Decision: %s\n", result.Decision)
	for _, failure := range result.Failures {
		fmt.Printf("Skipped: %s\n", failure)
	}
	if len(result.Failures) > 0 {
		os.Exit(2)
	}
}
