// Package render turns runs and display sections into Markdown, JSON or
// styled terminal output.
package render

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/recebe/internal/fields"
	"github.com/ppiankov/recebe/internal/model"
)

var (
	stripOnce   sync.Once
	stripPolicy *bluemonday.Policy
)

func stripper() *bluemonday.Policy {
	stripOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// maxSanitizePasses bounds the unescape/strip loop for nested entities
const maxSanitizePasses = 4

// SanitizeMarkdown removes raw HTML from markdown produced by the service.
// Markdown syntax is left intact. Entity-encoded markup is decoded and
// stripped as well; input that is still changing after a few passes is
// returned escaped.
func SanitizeMarkdown(md string) string {
	policy := stripper()
	for range maxSanitizePasses {
		next := html.UnescapeString(policy.Sanitize(md))
		if next == md {
			return next
		}
		md = next
	}
	return policy.Sanitize(md)
}

// cell escapes a value for use inside a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// SectionsMarkdown renders one table per section. Hidden rows are skipped.
func SectionsMarkdown(sections []fields.SectionResult) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n\n", s.Title)
		b.WriteString("| Field | Value |\n")
		b.WriteString("|---|---|\n")
		for _, f := range s.Fields {
			if !f.ShouldDisplay {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s |\n", cell(f.Label), cell(f.Value))
		}
	}
	return b.String()
}

// RunMarkdown renders the header of a run followed by what its status allows:
// sections for a completed run, the server message for a failed one.
func RunMarkdown(run *model.Run, sections []fields.SectionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s %s\n\n", run.DocumentType, run.ID)
	fmt.Fprintf(&b, "- **Status:** %s\n", run.Status.Label())
	if !run.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if run.Input.ContractNumber != "" {
		fmt.Fprintf(&b, "- **Contract:** %s\n", run.Input.ContractNumber)
	}
	if len(run.Input.Files) > 0 {
		fmt.Fprintf(&b, "- **Files:** %s\n", strings.Join(run.Input.Files, ", "))
	}
	b.WriteString("\n")

	switch run.Status {
	case model.StatusFailed:
		fmt.Fprintf(&b, "> %s\n", run.FailureMessage())
	case model.StatusCompleted:
		if len(sections) == 0 {
			b.WriteString("No fields were extracted for this run.\n")
		} else {
			b.WriteString(SectionsMarkdown(sections))
		}
	default:
		b.WriteString("The run is still being processed. Refresh with `recebe runs show --refresh`.\n")
	}
	return b.String()
}

// RunsMarkdown renders a page of runs as a table
func RunsMarkdown(page *model.RunPage) string {
	if len(page.Items) == 0 {
		return "No runs found.\n"
	}

	var b strings.Builder
	b.WriteString("| ID | Type | Status | Created | Contract |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range page.Items {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(r.ID), r.DocumentType, r.Status.Label(), formatTime(r.CreatedAt), cell(r.Input.ContractNumber))
	}
	if page.NextCursor != "" {
		fmt.Fprintf(&b, "\nMore runs: `--cursor %s`\n", page.NextCursor)
	}
	return b.String()
}

// SummaryMarkdown renders run counts
func SummaryMarkdown(s *model.Summary) string {
	var b strings.Builder
	b.WriteString("| Status | Runs |\n")
	b.WriteString("|---|---|\n")
	rows := []struct {
		status model.RunStatus
		count  int
	}{
		{model.StatusPending, s.Pending},
		{model.StatusRunning, s.Running},
		{model.StatusCompleted, s.Completed},
		{model.StatusFailed, s.Failed},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %d |\n", row.status.Label(), row.count)
	}
	fmt.Fprintf(&b, "| **Total** | **%d** |\n", s.Total)
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
