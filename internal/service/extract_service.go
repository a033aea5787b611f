package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/extract"
	"github.com/billdesk/bill-audit/internal/models"
	"github.com/billdesk/bill-audit/internal/worker"
)

// ExtractService walks the raw resources tree and produces the
// extracted JSON tree the audit reads. Layout on both sides is
// {category}/{empID}_{empName}: PDFs in, one JSON list per employee
// folder out.
type ExtractService struct {
	resourcesDir string
	extractedDir string
	reader       *extract.PDFReader
	extractor    *extract.Extractor
	pool         *worker.Pool
	logger       *zap.Logger
}

// NewExtractService creates the extraction pipeline.
func NewExtractService(resourcesDir, extractedDir string, reader *extract.PDFReader, extractor *extract.Extractor, workers int, logger *zap.Logger) *ExtractService {
	return &ExtractService{
		resourcesDir: resourcesDir,
		extractedDir: extractedDir,
		reader:       reader,
		extractor:    extractor,
		pool:         worker.NewPool(workers, logger),
		logger:       logger,
	}
}

// Run extracts every employee folder under every category directory.
// A bill that fails extraction is logged and skipped so one bad scan
// does not sink the folder.
func (s *ExtractService) Run(ctx context.Context) error {
	entries, err := os.ReadDir(s.resourcesDir)
	if err != nil {
		return fmt.Errorf("failed to read resources directory: %w", err)
	}

	var jobs []worker.Job
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "policy" {
			continue
		}
		category := models.NormalizeCategory(models.Category(strings.ToLower(entry.Name())))
		categoryDir := filepath.Join(s.resourcesDir, entry.Name())

		empDirs, err := os.ReadDir(categoryDir)
		if err != nil {
			return fmt.Errorf("failed to read category directory %s: %w", entry.Name(), err)
		}
		for _, empDir := range empDirs {
			if !empDir.IsDir() {
				continue
			}
			srcDir := filepath.Join(categoryDir, empDir.Name())
			dirName := empDir.Name()
			jobs = append(jobs, func(ctx context.Context) error {
				return s.extractEmployeeDir(ctx, srcDir, dirName, category)
			})
		}
	}

	var failed int
	for _, jerr := range s.pool.Run(ctx, jobs) {
		if jerr != nil {
			s.logger.Error("Extraction job failed", zap.Error(jerr))
			failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extraction interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d extraction jobs failed", failed, len(jobs))
	}

	s.logger.Info("Extraction completed", zap.Int("folders", len(jobs)))
	return nil
}

func (s *ExtractService) extractEmployeeDir(ctx context.Context, srcDir, dirName string, category models.Category) error {
	empID, empName := splitEmployeeDir(dirName)

	files, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("failed to read employee directory %s: %w", dirName, err)
	}

	receipts := []models.Receipt{}
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(srcDir, file.Name())

		content, err := s.reader.Read(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable bill",
				zap.String("file", path), zap.Error(err))
			continue
		}
		receipt, err := s.extractor.Extract(ctx, content, file.Name(), category, empID, empName)
		if err != nil {
			s.logger.Warn("Skipping bill that failed extraction",
				zap.String("file", path), zap.Error(err))
			continue
		}
		receipts = append(receipts, *receipt)
	}

	sort.Slice(receipts, func(i, j int) bool { return receipts[i].Filename < receipts[j].Filename })

	return s.writeExtracted(category, dirName, receipts)
}

func (s *ExtractService) writeExtracted(category models.Category, dirName string, receipts []models.Receipt) error {
	outDir := filepath.Join(s.extractedDir, string(category))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal receipts: %w", err)
	}

	outPath := filepath.Join(outDir, dirName+".json")
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	s.logger.Info("Extracted employee folder",
		zap.String("category", string(category)),
		zap.String("employee", dirName),
		zap.Int("bills", len(receipts)))
	return nil
}

// splitEmployeeDir splits a "{empID}_{empName}" folder name. A name
// with no underscore is treated as the id.
func splitEmployeeDir(dirName string) (empID, empName string) {
	parts := strings.SplitN(dirName, "_", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return dirName, ""
}
