// Package pdf renders stored memo markdown into PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/aestimo/internal/models"
)

// cacheCapacity bounds the rendered-PDF cache.
const cacheCapacity = 128

// Service converts markdown memos to PDF byte streams.
type Service struct {
	logger arbor.ILogger

	// Rendered documents are cached per report id. Reports are immutable,
	// and fpdf emits font resource dictionaries in map order, so serving
	// cached bytes is what keeps repeated exports byte-identical.
	mu         sync.Mutex
	cache      map[string][]byte
	cacheOrder []string
}

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		cache:  make(map[string][]byte),
	}
}

// Render converts a stored report's markdown into a PDF. Repeated calls
// for the same report id return the same bytes.
func (s *Service) Render(report *models.Report) ([]byte, error) {
	if report.ID != "" {
		s.mu.Lock()
		cached, ok := s.cache[report.ID]
		s.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	content, err := s.render(report)
	if err != nil {
		return nil, err
	}

	if report.ID != "" {
		s.mu.Lock()
		if existing, ok := s.cache[report.ID]; ok {
			// A concurrent render won the race, serve its bytes
			content = existing
		} else {
			s.cache[report.ID] = content
			s.cacheOrder = append(s.cacheOrder, report.ID)
			for len(s.cacheOrder) > cacheCapacity {
				delete(s.cache, s.cacheOrder[0])
				s.cacheOrder = s.cacheOrder[1:]
			}
		}
		s.mu.Unlock()
	}

	return content, nil
}

func (s *Service) render(report *models.Report) ([]byte, error) {
	s.logger.Debug().
		Str("report_id", report.ID).
		Int("markdown_len", len(report.Markdown)).
		Msg("Rendering report to PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle(fmt.Sprintf("Investment Memo: %s", report.Ticker), false)
	pdf.SetCreationDate(report.CreatedAt)
	pdf.SetModificationDate(report.CreatedAt)
	pdf.AddPage()

	// Memo header
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(0, 0, 96)
	pdf.CellFormat(0, 12, fmt.Sprintf("Investment Memo: %s", report.Ticker), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "CONFIDENTIAL REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	source := []byte(stripFrontmatter(report.Markdown))
	doc := md.Parser().Parse(text.NewReader(source))

	renderer := &memoRenderer{
		pdf:    pdf,
		source: source,
		font:   "Arial",
		size:   9,
	}

	if err := ast.Walk(doc, renderer.walk); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("PDF rendering failed")
		return nil, &models.RenderError{ReportID: report.ID, Message: err.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("PDF output failed")
		return nil, &models.RenderError{ReportID: report.ID, Message: err.Error()}
	}

	s.logger.Debug().
		Str("report_id", report.ID).
		Int("pdf_size", buf.Len()).
		Msg("PDF rendered")

	return buf.Bytes(), nil
}

// memoRenderer walks the markdown AST and writes it into the PDF.
type memoRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	inList    bool
	listLevel int
}

func (r *memoRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *memoRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		return r.handleEmphasis(n.(*ast.Emphasis), entering)
	case ast.KindCodeSpan:
		return r.handleCodeSpan(n.(*ast.CodeSpan), entering)
	case ast.KindFencedCodeBlock:
		if entering {
			r.renderCodeBlock(n.(*ast.FencedCodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindCodeBlock:
		if entering {
			r.renderCodeBlock(n.(*ast.CodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		r.handleList(entering)
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			indent := float64(r.listLevel) * 5.0
			r.pdf.SetX(15 + indent)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		return r.handleTable(n.(*extast.Table), entering)
	}
	return ast.WalkContinue, nil
}

func (r *memoRenderer) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(6)
		r.updateFont()
	}
	return ast.WalkContinue, nil
}

func (r *memoRenderer) handleEmphasis(n *ast.Emphasis, entering bool) (ast.WalkStatus, error) {
	if n.Level == 2 {
		r.bold = entering
	} else {
		r.italic = entering
	}
	r.updateFont()
	return ast.WalkContinue, nil
}

func (r *memoRenderer) handleCodeSpan(n *ast.CodeSpan, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.SetFont("Courier", "", 10)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				r.pdf.Write(5, string(textNode.Segment.Value(r.source)))
			}
		}
	} else {
		r.updateFont()
	}
	return ast.WalkSkipChildren, nil
}

func (r *memoRenderer) renderCodeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 9)
	r.pdf.SetFillColor(245, 245, 245)

	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, 5, string(line.Value(r.source)), "", "L", true)
	}

	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

func (r *memoRenderer) handleList(entering bool) {
	if entering {
		r.inList = true
		r.listLevel++
	} else {
		r.listLevel--
		if r.listLevel == 0 {
			r.inList = false
			r.pdf.Ln(2)
		}
	}
}

func (r *memoRenderer) handleTable(n *extast.Table, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var rows [][]string
	var findRows func(node ast.Node)
	findRows = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if tr, ok := child.(*extast.TableRow); ok {
				rows = append(rows, r.extractRow(tr))
			} else if _, ok := child.(*extast.TableHeader); ok {
				findRows(child)
			}
		}
	}
	findRows(n)

	r.renderTable(rows)
	return ast.WalkSkipChildren, nil
}

func (r *memoRenderer) extractRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(r.source)))
		}
	}
	return row
}

func (r *memoRenderer) renderTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	r.pdf.Ln(2)

	pageWidth := 180.0
	numCols := len(rows[0])
	fontSize := 8.0
	lineHeight := 4.0

	colWidths := r.tableColumnWidths(rows, numCols, pageWidth, fontSize)

	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
			r.pdf.SetFillColor(255, 255, 255)
		}

		// Row height from the tallest wrapped cell
		maxLines := 1
		for j, cell := range row {
			if j < numCols {
				if lines := r.linesNeeded(cell, colWidths[j]-2); lines > maxLines {
					maxLines = lines
				}
			}
		}
		if maxLines > 8 {
			maxLines = 8
		}

		rowHeight := float64(maxLines)*lineHeight + 2
		startY := r.pdf.GetY()
		startX := r.pdf.GetX()

		pageHeight := 297.0 - 15.0
		if startY+rowHeight > pageHeight {
			r.pdf.AddPage()
			startY = r.pdf.GetY()
		}

		for j, cell := range row {
			if j >= numCols {
				continue
			}
			x := startX
			for k := 0; k < j; k++ {
				x += colWidths[k]
			}

			if i == 0 {
				r.pdf.Rect(x, startY, colWidths[j], rowHeight, "FD")
			} else {
				r.pdf.Rect(x, startY, colWidths[j], rowHeight, "D")
			}

			r.pdf.SetXY(x+1, startY+1)
			r.renderCellText(cell, colWidths[j]-2, lineHeight, maxLines)
		}

		r.pdf.SetXY(startX, startY+rowHeight)
	}

	r.pdf.Ln(3)
	r.updateFont()
}

// tableColumnWidths sizes columns from measured content, scaled to fit
// the page.
func (r *memoRenderer) tableColumnWidths(rows [][]string, numCols int, pageWidth, fontSize float64) []float64 {
	colWidths := make([]float64, numCols)

	r.pdf.SetFont(r.font, "", fontSize)
	for _, row := range rows {
		for i, cell := range row {
			if i < numCols {
				if w := r.pdf.GetStringWidth(cell) + 4; w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}

	// Header row is bold and measures wider
	r.pdf.SetFont(r.font, "B", fontSize)
	for i, cell := range rows[0] {
		if i < numCols {
			if w := r.pdf.GetStringWidth(cell) + 4; w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}
	r.pdf.SetFont(r.font, "", fontSize)

	minWidth := 12.0
	maxWidth := pageWidth / 3.0
	for i := range colWidths {
		if colWidths[i] < minWidth {
			colWidths[i] = minWidth
		}
		if colWidths[i] > maxWidth {
			colWidths[i] = maxWidth
		}
	}

	totalWidth := 0.0
	for _, w := range colWidths {
		totalWidth += w
	}

	if totalWidth > pageWidth {
		scale := pageWidth / totalWidth
		for i := range colWidths {
			colWidths[i] *= scale
			if colWidths[i] < minWidth*0.8 {
				colWidths[i] = minWidth * 0.8
			}
		}
	} else if totalWidth < pageWidth*0.9 {
		scale := (pageWidth * 0.95) / totalWidth
		if scale > 1.5 {
			scale = 1.5
		}
		for i := range colWidths {
			colWidths[i] *= scale
		}
	}

	return colWidths
}

// linesNeeded counts wrapped lines using measured string widths.
func (r *memoRenderer) linesNeeded(text string, width float64) int {
	if text == "" || width <= 0 {
		return 1
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return 1
	}

	lines := 1
	currentWidth := 0.0
	spaceWidth := r.pdf.GetStringWidth(" ")

	for _, word := range words {
		wordWidth := r.pdf.GetStringWidth(word)
		switch {
		case currentWidth == 0:
			currentWidth = wordWidth
		case currentWidth+spaceWidth+wordWidth <= width:
			currentWidth += spaceWidth + wordWidth
		default:
			lines++
			currentWidth = wordWidth
		}
	}

	return lines
}

// renderCellText word-wraps cell text, truncating with an ellipsis past
// maxLines.
func (r *memoRenderer) renderCellText(text string, width, lineHeight float64, maxLines int) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}

	var lines []string
	currentLine := ""
	currentWidth := 0.0
	spaceWidth := r.pdf.GetStringWidth(" ")

	for _, word := range words {
		wordWidth := r.pdf.GetStringWidth(word)
		switch {
		case currentLine == "":
			currentLine = word
			currentWidth = wordWidth
		case currentWidth+spaceWidth+wordWidth <= width:
			currentLine += " " + word
			currentWidth += spaceWidth + wordWidth
		default:
			lines = append(lines, currentLine)
			currentLine = word
			currentWidth = wordWidth
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for r.pdf.GetStringWidth(line+"...") > width && len(line) > 3 {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		r.pdf.CellFormat(width, lineHeight, line, "", 2, "L", false, 0, "")
	}
}

// stripFrontmatter removes YAML frontmatter delimited by --- at the start
// of the content.
func stripFrontmatter(markdown string) string {
	if !strings.HasPrefix(markdown, "---\n") {
		return markdown
	}

	endIdx := strings.Index(markdown[4:], "\n---\n")
	if endIdx == -1 {
		return markdown
	}

	return strings.TrimSpace(markdown[4+endIdx+5:])
}
