package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocumentType identifies what a run produces or analyzes
type DocumentType string

const (
	DocumentTRP DocumentType = "TRP" // Termo de Recebimento Provisório (generated)
	DocumentTRD DocumentType = "TRD" // Termo de Recebimento Definitivo (generated from a completed TRP)
	DocumentDFD DocumentType = "DFD" // Documento de Formalização da Demanda (analyzed, not generated)
)

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTRP, DocumentTRD, DocumentDFD:
		return true
	}
	return false
}

// ParseDocumentType accepts any casing of a document type name
func ParseDocumentType(s string) (DocumentType, bool) {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// RunStatus is the server-reported state of a run.
// The client never moves a run between states; it only mirrors the last fetch.
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusFailed    RunStatus = "FAILED"
)

// ParseRunStatus maps a wire status to a RunStatus. PROCESSING is an alias of RUNNING.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING":
		return StatusPending, true
	case "RUNNING", "PROCESSING":
		return StatusRunning, true
	case "COMPLETED":
		return StatusCompleted, true
	case "FAILED":
		return StatusFailed, true
	}
	return "", false
}

// Terminal reports whether no further transitions are expected
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Label returns the status as shown to users
func (s RunStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Run is one document-generation job
type Run struct {
	ID           string       `json:"id"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	Status       RunStatus    `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	Input        RunInput     `json:"input"`
	Output       *RunOutput   `json:"output,omitempty"` // Present once the server has produced a result
}

// RunInput is what the user submitted
type RunInput struct {
	ContractNumber string            `json:"contract_number,omitempty"`
	InvoiceNumber  string            `json:"invoice_number,omitempty"`
	SourceRunID    string            `json:"source_run_id,omitempty"` // TRP run a TRD is derived from
	Files          []string          `json:"files,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RunOutput is what the server produced
type RunOutput struct {
	Fields   Record   `json:"campos_trp_normalizados,omitempty"`
	Markdown string   `json:"markdown,omitempty"`
	Error    string   `json:"error,omitempty"` // Verbatim failure message for FAILED runs
	Formats  []string `json:"formats,omitempty"`
}

// FailureMessage returns the server error for a failed run
func (r *Run) FailureMessage() string {
	if r.Status != StatusFailed {
		return ""
	}
	if r.Output != nil && r.Output.Error != "" {
		return r.Output.Error
	}
	return "The run failed without an error message."
}

// HasFields reports whether output fields are available to display
func (r *Run) HasFields() bool {
	return r.Status == StatusCompleted && r.Output != nil && r.Output.Fields.Len() > 0
}

// Summary holds run counts per status
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Add counts a run into the summary
func (s *Summary) Add(status RunStatus) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusRunning:
		s.Running++
	case StatusCompleted:
		s.Completed++
	case StatusFailed:
		s.Failed++
	}
}

// RunPage is one page of a run listing
type RunPage struct {
	Items      []Run  `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// DownloadFormat is the file format of a generated document
type DownloadFormat string

const (
	FormatPDF  DownloadFormat = "pdf"
	FormatDOCX DownloadFormat = "docx"
)

// ParseDownloadFormat accepts "pdf" or "docx" in any casing
func ParseDownloadFormat(s string) (DownloadFormat, bool) {
	f := DownloadFormat(strings.ToLower(strings.TrimSpace(s)))
	return f, f == FormatPDF || f == FormatDOCX
}

// UnmarshalJSON accepts the wire aliases understood by ParseRunStatus
func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("run status: %w", err)
	}
	status, ok := ParseRunStatus(raw)
	if !ok {
		return fmt.Errorf("unknown run status %q", raw)
	}
	*s = status
	return nil
}
