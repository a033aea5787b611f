package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// Writer produces the audit summary workbook handed to the finance
// team: one row per decision group plus the adjudication text.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a report writer
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger}
}

const sheetName = "Audit Summary"

var headers = []string{
	"Employee ID", "Employee Name", "Category", "Date",
	"Valid Bills", "Invalid Bills", "Daily Total", "Monthly Total",
}

// Write renders the groups into a workbook at path, creating parent
// directories as needed.
func (w *Writer) Write(path string, groups []models.DecisionGroup, decision string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, g := range groups {
		row := i + 2
		values := []any{
			g.EmployeeID,
			g.EmployeeName,
			string(g.Category),
			deref(g.Date),
			len(g.ValidBills),
			len(g.InvalidBills),
			derefFloat(g.DailyTotal),
			derefFloat(g.MonthlyTotal),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	// Decision text goes below the table, left-aligned in column A.
	if decision != "" {
		cell, _ := excelize.CoordinatesToCellName(1, len(groups)+3)
		if err := f.SetCellValue(sheetName, cell, "Decision: "+decision); err != nil {
			return fmt.Errorf("failed to write decision: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	w.logger.Info("Audit report written",
		zap.String("path", path),
		zap.Int("groups", len(groups)))

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}
