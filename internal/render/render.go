package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ppiankov/recebe/internal/fields"
	"github.com/ppiankov/recebe/internal/model"
)

// Format selects the output encoding
type Format string

const (
	FormatTerminal Format = "terminal"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTerminal, FormatMarkdown, FormatJSON:
		return f, nil
	case "":
		return FormatTerminal, nil
	}
	return "", fmt.Errorf("unknown output format %q (terminal, markdown, json)", s)
}

// Renderer writes runs in one format
type Renderer struct {
	out    io.Writer
	format Format
	term   *glamour.TermRenderer
}

// New creates a renderer. theme names a glamour style, "auto" picks one from
// the terminal background.
func New(out io.Writer, format Format, theme string, wordWrap int) (*Renderer, error) {
	r := &Renderer{out: out, format: format}
	if format != FormatTerminal {
		return r, nil
	}

	if wordWrap <= 0 {
		wordWrap = 100
	}
	style := glamour.WithAutoStyle()
	if theme != "" && theme != "auto" {
		style = glamour.WithStylePath(theme)
	}
	term, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return nil, fmt.Errorf("terminal renderer: %w", err)
	}
	r.term = term
	return r, nil
}

// runView is the JSON shape of a rendered run
type runView struct {
	Run      *model.Run             `json:"run"`
	Sections []fields.SectionResult `json:"sections"`
	Error    string                 `json:"error,omitempty"`
}

// Run writes a run with its display sections
func (r *Renderer) Run(run *model.Run, sections []fields.SectionResult) error {
	if r.format == FormatJSON {
		if sections == nil {
			sections = []fields.SectionResult{}
		}
		return r.json(runView{Run: run, Sections: sections, Error: run.FailureMessage()})
	}
	return r.markdown(RunMarkdown(run, sections))
}

// Document writes the markdown body the service generated for a run
func (r *Renderer) Document(md string) error {
	md = SanitizeMarkdown(md)
	if r.format == FormatJSON {
		return r.json(map[string]string{"markdown": md})
	}
	return r.markdown(md)
}

// Runs writes a page of runs
func (r *Renderer) Runs(page *model.RunPage) error {
	if r.format == FormatJSON {
		return r.json(page)
	}
	return r.markdown(RunsMarkdown(page))
}

// Summary writes run counts
func (r *Renderer) Summary(s *model.Summary) error {
	if r.format == FormatJSON {
		return r.json(s)
	}
	return r.markdown(SummaryMarkdown(s))
}

// Text writes free text such as a digest
func (r *Renderer) Text(title, body string) error {
	if r.format == FormatJSON {
		return r.json(map[string]string{"title": title, "text": body})
	}
	return r.markdown(fmt.Sprintf("### %s\n\n%s\n", title, body))
}

func (r *Renderer) markdown(md string) error {
	if r.term != nil {
		styled, err := r.term.Render(md)
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		md = styled
	}
	_, err := io.WriteString(r.out, md)
	return err
}

func (r *Renderer) json(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
