package models

import (
	"time"
)

// Report represents an immutable synthesized investment memo.
// The markdown body is fixed at creation time; export renders it without
// accepting replacement content from callers.
type Report struct {
	// Identity
	ID string `json:"id"` // rpt_{uuid}

	// Inputs the memo was synthesized from
	Ticker string `json:"ticker"`
	Model  string `json:"model"`

	// Content
	Markdown string `json:"markdown"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Ticker string `json:"ticker" validate:"required"`
	Model  string `json:"model" validate:"required"`
}

// AnalyzeResponse is the success body of POST /api/analyze.
type AnalyzeResponse struct {
	ReportID string `json:"reportId"`
	Markdown string `json:"markdown"`
}

// ExportRequest is the body of POST /api/export. The ticker is used only
// for the suggested download filename; the PDF content always comes from
// the stored report referenced by ReportID.
type ExportRequest struct {
	Ticker   string `json:"ticker"`
	ReportID string `json:"reportId" validate:"required"`
}

// ReportMetadata is the body of GET /api/reports/{id}. It exposes report
// attributes without the markdown payload.
type ReportMetadata struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Model     string    `json:"model"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Metadata returns the report's metadata view.
func (r *Report) Metadata() ReportMetadata {
	return ReportMetadata{
		ID:        r.ID,
		Ticker:    r.Ticker,
		Model:     r.Model,
		SizeBytes: len(r.Markdown),
		CreatedAt: r.CreatedAt,
	}
}
