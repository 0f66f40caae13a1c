package pdf

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aestimo/internal/models"
)

func testReport(markdown string) *models.Report {
	return &models.Report{
		ID:        "rpt_test_" + uuid.New().String(),
		Ticker:    "NVDA",
		Model:     "llama-3.3-70b-versatile",
		Markdown:  markdown,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	logger := arbor.NewLogger()
	service := NewService(logger)

	tests := []struct {
		name     string
		markdown string
	}{
		{
			name:     "Basic Markdown",
			markdown: "# Title\n\nSome paragraph text.\n\n- Item 1\n- Item 2",
		},
		{
			name:     "Empty Markdown",
			markdown: "",
		},
		{
			name: "Memo with Table",
			markdown: `## 1. Executive Summary
- **Recommendation:** BUY

## 3. Financial Analysis
| Metric | Value | Comment |
| :--- | :--- | :--- |
| **P/E Ratio** | 73.5 | Above industry average |
`,
		},
		{
			name:     "Bold and Italic",
			markdown: "Normal **Bold** *Italic* ***BoldItalic***",
		},
		{
			name:     "Frontmatter Stripped",
			markdown: "---\ninternal: true\n---\n\n# Memo Body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfBytes, err := service.Render(testReport(tt.markdown))
			require.NoError(t, err)
			require.NotEmpty(t, pdfBytes)

			// Basic PDF header check
			assert.Equal(t, "%PDF", string(pdfBytes[:4]))
			assert.Greater(t, len(pdfBytes), 500)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	logger := arbor.NewLogger()
	service := NewService(logger)

	report := testReport("## 1. Executive Summary\n- **Recommendation:** BUY\n\nNVDA remains the leader in AI accelerators.")

	first, err := service.Render(report)
	require.NoError(t, err)
	second, err := service.Render(report)
	require.NoError(t, err)

	// The second call serves the cached document
	assert.Equal(t, first, second)
}

func TestRender_DeterministicUnderConcurrency(t *testing.T) {
	logger := arbor.NewLogger()
	service := NewService(logger)

	report := testReport("## 1. Executive Summary\n- **Recommendation:** HOLD")

	const renders = 8
	results := make([][]byte, renders)
	var wg sync.WaitGroup
	wg.Add(renders)
	for i := 0; i < renders; i++ {
		go func(i int) {
			defer wg.Done()
			content, err := service.Render(report)
			assert.NoError(t, err)
			results[i] = content
		}(i)
	}
	wg.Wait()

	for i := 1; i < renders; i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestRender_DistinctReportsNotShared(t *testing.T) {
	logger := arbor.NewLogger()
	service := NewService(logger)

	first, err := service.Render(testReport("# Memo about NVDA"))
	require.NoError(t, err)
	second, err := service.Render(testReport("# A very different memo about AAPL"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRender_ExtractedTextContainsTicker(t *testing.T) {
	logger := arbor.NewLogger()
	service := NewService(logger)
	extractor := NewExtractor(logger)

	report := testReport(`## 1. Executive Summary
- **Recommendation:** BUY
- **Thesis:** NVDA dominates the AI accelerator market.

## 6. Conclusion
NVDA is a core holding with a 12 month horizon.`)

	pdfBytes, err := service.Render(report)
	require.NoError(t, err)

	text, err := extractor.ExtractText(pdfBytes)
	require.NoError(t, err)
	assert.Contains(t, text, "NVDA")
}

func TestExtractor_PageCount(t *testing.T) {
	logger := arbor.NewLogger()
	service := NewService(logger)
	extractor := NewExtractor(logger)

	pdfBytes, err := service.Render(testReport("# Short memo"))
	require.NoError(t, err)

	count, err := extractor.PageCount(pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestContentPageNumber(t *testing.T) {
	tests := []struct {
		name string
		page int
		ok   bool
	}{
		{"extract_abc_Content_page_1.txt", 1, true},
		{"in_Content_page_12.txt", 12, true},
		{"Content_page_3.txt", 3, true},
		{"page_2.txt", 2, true},
		{"Content_page_x.txt", 0, false},
		{"notes.txt", 0, false},
	}

	for _, tt := range tests {
		page, ok := contentPageNumber(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.page, page, tt.name)
	}
}

func TestExtractor_InvalidPDF(t *testing.T) {
	logger := arbor.NewLogger()
	extractor := NewExtractor(logger)

	_, err := extractor.ExtractText([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no frontmatter", "# Title", "# Title"},
		{"with frontmatter", "---\nkey: value\n---\n\n# Title", "# Title"},
		{"unclosed frontmatter", "---\nkey: value\n# Title", "---\nkey: value\n# Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFrontmatter(tt.input))
		})
	}
}
