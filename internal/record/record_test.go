package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/recebe/internal/model"
)

const completedRun = `{
	"id": "run-1",
	"document_type": "TRP",
	"status": "COMPLETED",
	"created_at": "2025-05-02T10:00:00Z",
	"input": {"contract_number": "058/2025", "files": ["nf.pdf"]},
	"output": {
		"campos_trp_normalizados": {"numero_nf": "123", "numero_contrato": "058/2025", "valor_nf": 10.5},
		"markdown": "# TRP",
		"formats": ["pdf", "docx"]
	}
}`

func TestParseRun_Completed(t *testing.T) {
	run, err := ParseRun([]byte(completedRun))
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, model.StatusCompleted, run.Status)
	assert.Equal(t, model.DocumentTRP, run.DocumentType)
	assert.Equal(t, "058/2025", run.Input.ContractNumber)
	require.NotNil(t, run.Output)
	assert.Equal(t, []string{"numero_nf", "numero_contrato", "valor_nf"}, run.Output.Fields.Keys())
	assert.True(t, run.HasFields())
}

func TestParseRun_ProcessingAlias(t *testing.T) {
	run, err := ParseRun([]byte(`{"id": "r", "status": "PROCESSING"}`))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, run.Status)
	assert.Equal(t, model.DocumentTRP, run.DocumentType)
	assert.Nil(t, run.Output)
}

func TestParseRun_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"missing id":     `{"status": "PENDING"}`,
		"empty id":       `{"id": "", "status": "PENDING"}`,
		"unknown status": `{"id": "r", "status": "ARCHIVED"}`,
		"camelCase only": `{"runId": "r", "runStatus": "PENDING"}`,
		"bad type":       `{"id": "r", "status": "PENDING", "document_type": "XYZ"}`,
		"bad output":     `{"id": "r", "status": "FAILED", "output": "boom"}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRun([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRun))
		})
	}
}

func TestParseRun_FailedKeepsMessage(t *testing.T) {
	run, err := ParseRun([]byte(`{"id": "r", "status": "FAILED", "output": {"error": "Nota fiscal ilegível"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Nota fiscal ilegível", run.FailureMessage())
}

func TestParseRunPage(t *testing.T) {
	page, err := ParseRunPage([]byte(`{"items": [{"id": "a", "status": "PENDING"}, {"id": "b", "status": "RUNNING"}], "next_cursor": "c2"}`))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c2", page.NextCursor)

	_, err = ParseRunPage([]byte(`{"items": [{"id": "a", "status": "PENDING"}, {"status": "RUNNING"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRun))
}

func TestEncode_RoundTrip(t *testing.T) {
	run, err := ParseRun([]byte(completedRun))
	require.NoError(t, err)

	data, err := Encode(run)
	require.NoError(t, err)

	again, err := ParseRun(data)
	require.NoError(t, err)
	assert.Equal(t, run.Output.Fields.Keys(), again.Output.Fields.Keys())
	assert.Equal(t, run.CreatedAt.UTC(), again.CreatedAt.UTC())
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord(json.RawMessage(`{"b": "1", "a": "2"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, rec.Keys())

	rec, err = ParseRecord(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Len())

	_, err = ParseRecord(json.RawMessage(`[1]`))
	assert.True(t, errors.Is(err, ErrInvalidRun))
}
