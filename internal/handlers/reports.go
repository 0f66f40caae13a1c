package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/services/pdf"
	"github.com/ternarybob/aestimo/internal/services/reports"
	"github.com/ternarybob/arbor"
)

// ReportHandler serves memo generation and export endpoints.
type ReportHandler struct {
	orchestrator *reports.Orchestrator
	store        *reports.Store
	pdfService   *pdf.Service
	validate     *validator.Validate
	logger       arbor.ILogger
}

func NewReportHandler(orchestrator *reports.Orchestrator, store *reports.Store, pdfService *pdf.Service) *ReportHandler {
	return &ReportHandler{
		orchestrator: orchestrator,
		store:        store,
		pdfService:   pdfService,
		validate:     validator.New(),
		logger:       common.GetLogger(),
	}
}

// AnalyzeHandler generates an investment memo for a ticker.
// POST /api/analyze
func (h *ReportHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "ticker and model are required")
		return
	}

	report, err := h.orchestrator.Analyze(r.Context(), req.Ticker, req.Model)
	if err != nil {
		h.logger.Warn().Err(err).Str("ticker", req.Ticker).Str("model", req.Model).Msg("Analysis failed")
		WritePipelineError(w, err)
		return
	}

	h.logger.Info().
		Str("report_id", report.ID).
		Str("ticker", report.Ticker).
		Str("model", report.Model).
		Int("size_bytes", len(report.Markdown)).
		Msg("Analysis complete")

	WriteJSON(w, http.StatusOK, models.AnalyzeResponse{
		ReportID: report.ID,
		Markdown: report.Markdown,
	})
}

// ExportHandler renders a stored report to PDF.
// POST /api/export
//
// Only the report id selects content. The ticker field influences the
// download filename and nothing else.
func (h *ReportHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "reportId is required")
		return
	}

	report, err := h.store.Get(req.ReportID)
	if err != nil {
		WritePipelineError(w, err)
		return
	}

	content, err := h.pdfService.Render(report)
	if err != nil {
		h.logger.Error().Err(err).Str("report_id", report.ID).Msg("PDF render failed")
		WritePipelineError(w, err)
		return
	}

	filename := exportFilename(req.Ticker, report.Ticker)

	h.logger.Info().
		Str("report_id", report.ID).
		Str("filename", filename).
		Int("size_bytes", len(content)).
		Msg("Report exported")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// GetReportHandler returns metadata for a stored report.
// GET /api/reports/{id}
func (h *ReportHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "report id is required")
		return
	}

	report, err := h.store.Get(id)
	if err != nil {
		WritePipelineError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report.Metadata())
}

// exportFilename derives the download filename. A valid ticker in the
// request wins, otherwise the stored report's ticker is used.
func exportFilename(requested, stored string) string {
	ticker, ok := common.NormalizeTicker(requested)
	if !ok {
		ticker = stored
	}
	return ticker + "_MEMO.pdf"
}
