package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
)

// FileSorter places source receipt documents into valid/invalid folders
// according to the aggregator's file manifests. It is the only
// component that touches the filesystem with audit outcomes; the core
// itself never performs file I/O.
//
// Layout produced per manifest:
//
//	{outputRoot}/{category}/valid_bills/{empID}_{empName}/
//	{outputRoot}/{category}/invalid_bills/{empID}_{empName}/
type FileSorter struct {
	resourcesRoot string
	outputRoot    string
	logger        *zap.Logger
}

// NewFileSorter creates a sorter reading originals from resourcesRoot
// and writing sorted copies under outputRoot.
func NewFileSorter(resourcesRoot, outputRoot string, logger *zap.Logger) *FileSorter {
	return &FileSorter{
		resourcesRoot: resourcesRoot,
		outputRoot:    outputRoot,
		logger:        logger,
	}
}

// Sort copies the files named by one manifest into their destination
// folders. A missing source folder is logged and skipped, not fatal:
// the manifest still stands for reporting purposes.
func (s *FileSorter) Sort(manifest models.FileManifest) error {
	category := string(models.NormalizeCategory(manifest.Category))
	empFolder := sanitizeFolderName(manifest.EmployeeID + "_" + manifest.EmployeeName)

	srcDir, err := s.findEmployeeSourceDir(category, manifest.EmployeeID)
	if err != nil {
		return err
	}
	if srcDir == "" {
		s.logger.Warn("No source folder for employee",
			zap.String("category", category),
			zap.String("emp_id", manifest.EmployeeID))
		return nil
	}

	validDir := filepath.Join(s.outputRoot, category, "valid_bills", empFolder)
	invalidDir := filepath.Join(s.outputRoot, category, "invalid_bills", empFolder)
	for _, dir := range []string{validDir, invalidDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create destination folder: %w", err)
		}
	}

	copied, err := s.copyMatching(srcDir, validDir, manifest.ValidFiles)
	if err != nil {
		return err
	}
	copiedInvalid, err := s.copyMatching(srcDir, invalidDir, manifest.InvalidFiles)
	if err != nil {
		return err
	}

	s.logger.Info("Sorted receipt files",
		zap.String("category", category),
		zap.String("emp_id", manifest.EmployeeID),
		zap.Int("valid", copied),
		zap.Int("invalid", copiedInvalid))

	return nil
}

// findEmployeeSourceDir locates the resources folder whose name starts
// with the employee id, following the upload convention
// {empID}_{whatever}.
func (s *FileSorter) findEmployeeSourceDir(category, empID string) (string, error) {
	categoryDir := filepath.Join(s.resourcesRoot, category)
	entries, err := os.ReadDir(categoryDir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read resources for %s: %w", category, err)
	}

	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), empID) {
			return filepath.Join(categoryDir, entry.Name()), nil
		}
	}
	return "", nil
}

// copyMatching copies every file in srcDir whose name contains one of
// the wanted filenames. Substring matching tolerates upload suffixes
// like "(1)" that the extraction output does not carry.
func (s *FileSorter) copyMatching(srcDir, destDir string, wanted []string) (int, error) {
	if len(wanted) == 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read source folder: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, want := range wanted {
			if want == "" || !strings.Contains(entry.Name(), want) {
				continue
			}
			src := filepath.Join(srcDir, entry.Name())
			dest := filepath.Join(destDir, entry.Name())
			if err := copyFile(src, dest); err != nil {
				return copied, fmt.Errorf("failed to copy %s: %w", entry.Name(), err)
			}
			copied++
			break
		}
	}
	return copied, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

var unsafeFolderChars = regexp.MustCompile(`[^a-zA-Z0-9\-_ ]`)

// sanitizeFolderName strips path separators and special characters so
// employee names cannot escape the output tree.
func sanitizeFolderName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return strings.TrimSpace(unsafeFolderChars.ReplaceAllString(name, ""))
}
