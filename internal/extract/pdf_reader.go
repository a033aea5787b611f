package extract

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PDFContent is what could be pulled out of one source document before
// LLM field extraction: the embedded text layer plus page renderings
// for receipts that are pure scans.
type PDFContent struct {
	Text  string
	Pages [][]byte // JPEG-encoded page images
}

// PDFReader turns receipt PDFs into raw text and page images using
// mupdf.
type PDFReader struct {
	maxPages int
	logger   *zap.Logger
}

// NewPDFReader creates a PDF reader. maxPages caps how many pages are
// rendered per document; receipts rarely exceed one.
func NewPDFReader(maxPages int, logger *zap.Logger) *PDFReader {
	if maxPages < 1 {
		maxPages = 2
	}
	return &PDFReader{
		maxPages: maxPages,
		logger:   logger,
	}
}

// Read extracts text and page images from the given document.
func (r *PDFReader) Read(path string) (*PDFContent, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("document not found: %s", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	content := &PDFContent{}
	pageCount := doc.NumPage()
	if pageCount > r.maxPages {
		pageCount = r.maxPages
	}

	var text strings.Builder
	for page := 0; page < pageCount; page++ {
		pageText, err := doc.Text(page)
		if err != nil {
			r.logger.Warn("Failed to extract page text",
				zap.String("path", path),
				zap.Int("page", page),
				zap.Error(err))
		} else {
			text.WriteString(pageText)
			text.WriteString("\n")
		}

		img, err := doc.Image(page)
		if err != nil {
			r.logger.Warn("Failed to render page image",
				zap.String("path", path),
				zap.Int("page", page),
				zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			r.logger.Warn("Failed to encode page image",
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		content.Pages = append(content.Pages, buf.Bytes())
	}

	content.Text = strings.TrimSpace(text.String())
	r.logger.Debug("Document read",
		zap.String("path", path),
		zap.Int("pages", len(content.Pages)),
		zap.Int("text_len", len(content.Text)))

	return content, nil
}

// HasTextLayer reports whether the embedded text is substantial enough
// to skip vision extraction. Scanned receipts typically carry none.
func (c *PDFContent) HasTextLayer() bool {
	return len(c.Text) >= 40
}
