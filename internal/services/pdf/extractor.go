package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
)

// Extractor pulls text content back out of rendered PDFs using pdfcpu.
// pdfcpu works on files, so extraction goes through a temp directory.
type Extractor struct {
	logger  arbor.ILogger
	tempDir string
}

// NewExtractor creates a new PDF extractor
func NewExtractor(logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "aestimo-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// ExtractText extracts the text content of all pages from PDF bytes.
func (e *Extractor) ExtractText(pdfContent []byte) (string, error) {
	callID := uuid.New().String()
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%s.pdf", callID))
	if err := os.WriteFile(tempFile, pdfContent, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%s", callID))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		pageNum, ok := contentPageNumber(file.Name())
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	var fullText strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, ok := pageTexts[pageNum]
		if !ok {
			continue
		}
		if fullText.Len() > 0 {
			fullText.WriteString("\n\n")
		}
		fullText.WriteString(text)
	}

	if e.logger != nil {
		e.logger.Debug().
			Int("page_count", pageCount).
			Int("text_len", fullText.Len()).
			Msg("Extracted PDF text")
	}

	return fullText.String(), nil
}

// contentPageNumber parses the page number from a pdfcpu extraction
// output filename. pdfcpu names the files "<input>_Content_page_<n>.txt",
// older versions used "page_<n>".
func contentPageNumber(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	marker := "Content_page_"
	idx := strings.LastIndex(base, marker)
	if idx >= 0 {
		if n, err := strconv.Atoi(base[idx+len(marker):]); err == nil {
			return n, true
		}
		return 0, false
	}

	marker = "page_"
	idx = strings.LastIndex(base, marker)
	if idx >= 0 {
		if n, err := strconv.Atoi(base[idx+len(marker):]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// PageCount returns the number of pages in PDF bytes.
func (e *Extractor) PageCount(pdfContent []byte) (int, error) {
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("count_%s.pdf", uuid.New().String()))
	if err := os.WriteFile(tempFile, pdfContent, 0644); err != nil {
		return 0, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	return pdfCtx.PageCount, nil
}
