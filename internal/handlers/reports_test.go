package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/marketdata"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/research"
	"github.com/ternarybob/aestimo/internal/services/pdf"
	"github.com/ternarybob/aestimo/internal/services/reports"
	"github.com/ternarybob/aestimo/internal/services/synthesis"
)

type stubMarketData struct {
	calls int32
	err   error
}

func (s *stubMarketData) Fetch(ctx context.Context, ticker string) (*marketdata.Snapshot, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &marketdata.Snapshot{Ticker: ticker, Name: "Test Corp", Price: 100}, nil
}

type stubResearch struct {
	calls int32
	err   error
}

func (s *stubResearch) Search(ctx context.Context, ticker string) ([]research.Finding, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return []research.Finding{{Title: "News", Snippet: "snippet", Source: "https://example.com"}}, nil
}

type stubSynthesizer struct {
	calls int32
	err   error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, req *synthesis.Request) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("## 1. Executive Summary\n\n%s looks solid.\n", req.Ticker), nil
}

type handlerFixture struct {
	handler     *ReportHandler
	store       *reports.Store
	pdfService  *pdf.Service
	market      *stubMarketData
	research    *stubResearch
	synthesizer *stubSynthesizer
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	config := common.NewDefaultConfig()
	logger := common.GetLogger()
	store := reports.NewStore(0, logger)
	pdfService := pdf.NewService(logger)
	market := &stubMarketData{}
	researchStub := &stubResearch{}
	synthStub := &stubSynthesizer{}
	orchestrator := reports.NewOrchestrator(config, store, market, researchStub, synthStub, logger)
	handler := NewReportHandler(orchestrator, store, pdfService)
	return &handlerFixture{
		handler:     handler,
		store:       store,
		pdfService:  pdfService,
		market:      market,
		research:    researchStub,
		synthesizer: synthStub,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAnalyzeHandler(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "nvda",
		Model:  "llama-3.3-70b-versatile",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ReportID, "rpt_"))
	assert.Contains(t, resp.Markdown, "NVDA")

	stored, err := f.store.Get(resp.ReportID)
	require.NoError(t, err)
	assert.Equal(t, resp.Markdown, stored.Markdown)
}

func TestAnalyzeHandler_InvalidBody(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&f.market.calls))
}

func TestAnalyzeHandler_MissingFields(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", map[string]string{"ticker": "NVDA"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&f.market.calls))
	assert.Zero(t, atomic.LoadInt32(&f.synthesizer.calls))
}

func TestAnalyzeHandler_InvalidTicker(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NV DA",
		Model:  "llama-3.3-70b-versatile",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&f.market.calls))
	assert.Zero(t, atomic.LoadInt32(&f.research.calls))
	assert.Zero(t, atomic.LoadInt32(&f.synthesizer.calls))
}

func TestAnalyzeHandler_RateLimited(t *testing.T) {
	f := newHandlerFixture(t)
	f.market.err = &models.RateLimitError{Provider: "marketdata", Message: "quota exceeded"}

	rec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestAnalyzeHandler_UpstreamFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.research.err = &models.UpstreamError{Provider: "research", StatusCode: 503, Message: "unavailable"}

	rec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Zero(t, f.store.Len())
}

func TestAnalyzeHandler_UpstreamDetailsNotLeaked(t *testing.T) {
	f := newHandlerFixture(t)
	f.market.err = &models.UpstreamError{
		Provider:   "marketdata",
		StatusCode: 500,
		Message:    `{"detail":"internal provider stack trace at frame 0x7f"}`,
	}

	rec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream provider unavailable")
	assert.NotContains(t, rec.Body.String(), "stack trace")
}

func TestExportHandler(t *testing.T) {
	f := newHandlerFixture(t)

	analyzeRec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})
	require.Equal(t, http.StatusOK, analyzeRec.Code)
	var analyzeResp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(analyzeRec.Body.Bytes(), &analyzeResp))

	rec := postJSON(t, f.handler.ExportHandler, "/api/export", models.ExportRequest{
		Ticker:   "NVDA",
		ReportID: analyzeResp.ReportID,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "NVDA_MEMO.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestExportHandler_UnknownReport(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.ExportHandler, "/api/export", models.ExportRequest{
		Ticker:   "NVDA",
		ReportID: "rpt_does-not-exist",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportHandler_MissingReportID(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.ExportHandler, "/api/export", map[string]string{"ticker": "NVDA"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandler_ContentComesFromStore(t *testing.T) {
	f := newHandlerFixture(t)

	analyzeRec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})
	require.Equal(t, http.StatusOK, analyzeRec.Code)
	var analyzeResp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(analyzeRec.Body.Bytes(), &analyzeResp))

	// A mismatched ticker only changes the filename, never the content.
	rec := postJSON(t, f.handler.ExportHandler, "/api/export", models.ExportRequest{
		Ticker:   "AAPL",
		ReportID: analyzeResp.ReportID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "AAPL_MEMO.pdf")

	stored, err := f.store.Get(analyzeResp.ReportID)
	require.NoError(t, err)
	expected, err := f.pdfService.Render(stored)
	require.NoError(t, err)
	assert.Equal(t, expected, rec.Body.Bytes())

	// Repeated exports of the same report are byte-identical
	again := postJSON(t, f.handler.ExportHandler, "/api/export", models.ExportRequest{
		Ticker:   "NVDA",
		ReportID: analyzeResp.ReportID,
	})
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, rec.Body.Bytes(), again.Body.Bytes())
}

func TestExportHandler_InvalidTickerFallsBackToStored(t *testing.T) {
	f := newHandlerFixture(t)

	analyzeRec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})
	require.Equal(t, http.StatusOK, analyzeRec.Code)
	var analyzeResp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(analyzeRec.Body.Bytes(), &analyzeResp))

	rec := postJSON(t, f.handler.ExportHandler, "/api/export", models.ExportRequest{
		Ticker:   "../../etc/passwd",
		ReportID: analyzeResp.ReportID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "NVDA_MEMO.pdf")
}

func TestGetReportHandler(t *testing.T) {
	f := newHandlerFixture(t)

	analyzeRec := postJSON(t, f.handler.AnalyzeHandler, "/api/analyze", models.AnalyzeRequest{
		Ticker: "NVDA",
		Model:  "llama-3.3-70b-versatile",
	})
	require.Equal(t, http.StatusOK, analyzeRec.Code)
	var analyzeResp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(analyzeRec.Body.Bytes(), &analyzeResp))

	req := httptest.NewRequest("GET", "/api/reports/"+analyzeResp.ReportID, nil)
	rec := httptest.NewRecorder()
	f.handler.GetReportHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var meta models.ReportMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, analyzeResp.ReportID, meta.ID)
	assert.Equal(t, "NVDA", meta.Ticker)
	assert.Equal(t, len(analyzeResp.Markdown), meta.SizeBytes)
}

func TestGetReportHandler_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest("GET", "/api/reports/rpt_missing", nil)
	rec := httptest.NewRecorder()
	f.handler.GetReportHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.ValidationError{Field: "ticker", Message: "bad"}, http.StatusBadRequest},
		{&models.NotFoundError{ID: "rpt_x"}, http.StatusNotFound},
		{&models.RateLimitError{Provider: "marketdata"}, http.StatusTooManyRequests},
		{&models.UpstreamError{Provider: "research", StatusCode: 503}, http.StatusBadGateway},
		{&models.SynthesisError{Model: "m"}, http.StatusBadGateway},
		{&models.RenderError{ReportID: "rpt_x"}, http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorStatus(tt.err))
	}
}

func TestErrorMessage(t *testing.T) {
	validation := &models.ValidationError{Field: "ticker", Message: "must be a non-empty symbol"}
	assert.Equal(t, validation.Error(), ErrorMessage(validation))

	notFound := &models.NotFoundError{ID: "rpt_x"}
	assert.Equal(t, notFound.Error(), ErrorMessage(notFound))

	assert.Equal(t, "upstream provider rate limited, retry later",
		ErrorMessage(&models.RateLimitError{Provider: "marketdata", Message: "raw provider body"}))
	assert.Equal(t, "upstream provider unavailable",
		ErrorMessage(&models.UpstreamError{Provider: "research", Message: "raw provider body"}))
	assert.Equal(t, "memo synthesis failed",
		ErrorMessage(&models.SynthesisError{Model: "m", Message: "prompt echo"}))
	assert.Equal(t, "internal server error",
		ErrorMessage(&models.RenderError{ReportID: "rpt_x", Message: "renderer detail"}))
}
