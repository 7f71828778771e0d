package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/recebe/internal/fields"
	"github.com/ppiankov/recebe/internal/model"
)

var sampleSections = []fields.SectionResult{
	{Title: "IDENTIFICATION", Fields: []fields.DisplayField{
		{FieldName: "numero_contrato", Label: "Contract Number", Value: "058/2025", ShouldDisplay: true},
		{FieldName: "contratada", Label: "Contractor", Value: "ACME | Ltda", ShouldDisplay: true},
		{FieldName: "hidden", Label: "Hidden", Value: fields.NotInformed, ShouldDisplay: false},
	}},
}

func completedRun() *model.Run {
	return &model.Run{
		ID:           "run-1",
		DocumentType: model.DocumentTRP,
		Status:       model.StatusCompleted,
		CreatedAt:    time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC),
		Input:        model.RunInput{ContractNumber: "058/2025", Files: []string{"nf.pdf"}},
		Output:       &model.RunOutput{Markdown: "# TRP"},
	}
}

func TestSectionsMarkdown(t *testing.T) {
	got := SectionsMarkdown(sampleSections)
	want := "### IDENTIFICATION\n\n" +
		"| Field | Value |\n" +
		"|---|---|\n" +
		"| Contract Number | 058/2025 |\n" +
		"| Contractor | ACME \\| Ltda |\n"
	assert.Equal(t, want, got)
}

func TestRunMarkdown_ByStatus(t *testing.T) {
	run := completedRun()
	md := RunMarkdown(run, sampleSections)
	assert.Contains(t, md, "## TRP run-1")
	assert.Contains(t, md, "**Status:** Completed")
	assert.Contains(t, md, "| Contract Number | 058/2025 |")

	run.Status = model.StatusFailed
	run.Output = &model.RunOutput{Error: "Nota fiscal ilegível"}
	md = RunMarkdown(run, nil)
	assert.Contains(t, md, "> Nota fiscal ilegível")
	assert.NotContains(t, md, "| Field |")

	run.Status = model.StatusRunning
	md = RunMarkdown(run, nil)
	assert.Contains(t, md, "**Status:** Processing")
	assert.Contains(t, md, "--refresh")
}

func TestRunsMarkdown(t *testing.T) {
	assert.Equal(t, "No runs found.\n", RunsMarkdown(&model.RunPage{}))

	page := &model.RunPage{Items: []model.Run{*completedRun()}, NextCursor: "run-1"}
	md := RunsMarkdown(page)
	assert.Contains(t, md, "| run-1 | TRP | Completed |")
	assert.Contains(t, md, "--cursor run-1")
}

func TestSummaryMarkdown(t *testing.T) {
	md := SummaryMarkdown(&model.Summary{Total: 3, Pending: 1, Failed: 2})
	assert.Contains(t, md, "| Pending | 1 |")
	assert.Contains(t, md, "| Failed | 2 |")
	assert.Contains(t, md, "| **Total** | **3** |")
}

func TestSanitizeMarkdown(t *testing.T) {
	in := "# Termo\n\n<script>alert(1)</script>**Valor:** R$ 1.500 & frete\n\n> nota"
	got := SanitizeMarkdown(in)
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "**Valor:** R$ 1.500 & frete")
	assert.Contains(t, got, "> nota")
}

func TestSanitizeMarkdown_EncodedMarkup(t *testing.T) {
	tests := map[string]string{
		"entities":        "Texto &lt;script&gt;alert(1)&lt;/script&gt; e <b>negrito</b>",
		"double encoded":  "Texto &amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt; e <b>negrito</b>",
		"numeric entity":  "Texto &#60;script&#62;alert(1)&#60;/script&#62; e <b>negrito</b>",
		"encoded handler": "Texto &lt;img src=x onerror=alert(1)&gt; e <b>negrito</b>",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			got := SanitizeMarkdown(in)
			assert.NotContains(t, got, "<script")
			assert.NotContains(t, got, "<img")
			assert.NotContains(t, got, "<b>")
			assert.Contains(t, got, "negrito")
		})
	}
}

func TestRenderer_DocumentJSONHasNoMarkup(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, FormatJSON, "", 0)
	require.NoError(t, err)
	require.NoError(t, r.Document("## TRP\n\nTexto &lt;script&gt;alert(1)&lt;/script&gt;"))

	var out map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.NotContains(t, out["markdown"], "<script")
	assert.Contains(t, out["markdown"], "## TRP")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTerminal, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, FormatJSON, "", 0)
	require.NoError(t, err)
	require.NoError(t, r.Run(completedRun(), sampleSections))

	var out struct {
		Run      map[string]any `json:"run"`
		Sections []struct {
			Title  string `json:"title"`
			Fields []struct {
				FieldName     string `json:"fieldName"`
				ShouldDisplay bool   `json:"shouldDisplay"`
			} `json:"fields"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "run-1", out.Run["id"])
	require.Len(t, out.Sections, 1)
	assert.Equal(t, "numero_contrato", out.Sections[0].Fields[0].FieldName)
	assert.True(t, out.Sections[0].Fields[0].ShouldDisplay)
}

func TestRenderer_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, FormatMarkdown, "", 0)
	require.NoError(t, err)
	require.NoError(t, r.Summary(&model.Summary{Total: 1, Completed: 1}))
	assert.Equal(t, SummaryMarkdown(&model.Summary{Total: 1, Completed: 1}), buf.String())
}

func TestRenderer_Terminal(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, FormatTerminal, "notty", 80)
	require.NoError(t, err)
	require.NoError(t, r.Run(completedRun(), sampleSections))

	out := buf.String()
	assert.True(t, strings.Contains(out, "058/2025"), out)
	assert.Contains(t, out, "IDENTIFICATION")
}
