package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// Loader reads already-extracted receipt records from disk. The layout
// mirrors the extraction pipeline's output: one directory per category,
// each holding JSON files that contain a single receipt object or a
// list of them.
//
// Directory names double as the category annotation, so receipts that
// carry no category of their own inherit the folder's.
type Loader struct {
	root   string
	logger *zap.Logger
}

// NewLoader creates a loader rooted at the extraction output directory.
func NewLoader(root string, logger *zap.Logger) *Loader {
	return &Loader{
		root:   root,
		logger: logger,
	}
}

// Load scans every category directory and returns all receipts in a
// stable order: categories alphabetically, files alphabetically within
// each. A file that fails to parse is logged and skipped; it must not
// sink the batch.
func (l *Loader) Load() ([]models.Receipt, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction root: %w", err)
	}

	var categories []string
	for _, entry := range entries {
		// The policy directory sits next to category output but holds
		// no receipts.
		if !entry.IsDir() || entry.Name() == "policy" {
			continue
		}
		categories = append(categories, entry.Name())
	}
	sort.Strings(categories)

	var receipts []models.Receipt
	for _, category := range categories {
		loaded, err := l.loadCategory(category)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, loaded...)
	}

	l.logger.Info("Extracted receipts loaded",
		zap.String("root", l.root),
		zap.Int("categories", len(categories)),
		zap.Int("receipts", len(receipts)))

	return receipts, nil
}

func (l *Loader) loadCategory(category string) ([]models.Receipt, error) {
	dir := filepath.Join(l.root, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read category dir %s: %w", category, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var receipts []models.Receipt
	for _, name := range names {
		path := filepath.Join(dir, name)
		loaded, err := loadReceiptFile(path)
		if err != nil {
			l.logger.Warn("Skipping unreadable receipt file",
				zap.String("path", path),
				zap.Error(err))
			continue
		}

		for i := range loaded {
			if loaded[i].Category == "" {
				loaded[i].Category = models.Category(category)
			}
			loaded[i].Category = models.NormalizeCategory(loaded[i].Category)
			if loaded[i].Currency == "" {
				loaded[i].Currency = models.DefaultCurrency
			}
			if loaded[i].ID == "" {
				loaded[i].ID = strings.TrimSuffix(loaded[i].Filename, filepath.Ext(loaded[i].Filename))
			}
		}
		receipts = append(receipts, loaded...)
	}
	return receipts, nil
}

// loadReceiptFile accepts either a single receipt object or a list.
func loadReceiptFile(path string) ([]models.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []models.Receipt
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single models.Receipt
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("neither a receipt nor a receipt list: %w", err)
	}
	return []models.Receipt{single}, nil
}
