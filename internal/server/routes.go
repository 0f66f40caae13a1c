package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Reports
	mux.HandleFunc("/api/analyze", s.app.ReportHandler.AnalyzeHandler)    // POST - generate memo
	mux.HandleFunc("/api/export", s.app.ReportHandler.ExportHandler)      // POST - render stored memo to PDF
	mux.HandleFunc("/api/reports/", s.app.ReportHandler.GetReportHandler) // GET /{id} - report metadata

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	return mux
}
