// Package record is the validation boundary for run payloads received from the
// document service. Payloads are checked against a JSON Schema and decoded into
// typed model values once, on receipt.
package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/recebe/internal/model"
)

// ErrInvalidRun is returned when a run payload does not match the contract
var ErrInvalidRun = errors.New("invalid run payload")

//go:embed run.schema.json
var runSchemaJSON string

var runSchema = jsonschema.MustCompileString("run.schema.json", runSchemaJSON)

// ParseRun validates and decodes a single run
func ParseRun(data []byte) (*model.Run, error) {
	doc, err := decodeAny(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	return parseRunDoc(data, doc)
}

// ParseRunPage validates and decodes a page of runs. Every item must satisfy
// the run contract.
func ParseRunPage(data []byte) (*model.RunPage, error) {
	var raw struct {
		Items      []json.RawMessage `json:"items"`
		NextCursor string            `json:"next_cursor"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}

	page := &model.RunPage{NextCursor: raw.NextCursor, Items: make([]model.Run, 0, len(raw.Items))}
	for i, item := range raw.Items {
		run, err := ParseRun(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		page.Items = append(page.Items, *run)
	}
	return page, nil
}

// ParseRecord decodes a field record, keeping the key order of the document
func ParseRecord(raw json.RawMessage) (model.Record, error) {
	var rec model.Record
	if len(bytes.TrimSpace(raw)) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	return rec, nil
}

// Encode serializes a run in the same contract ParseRun accepts
func Encode(run *model.Run) ([]byte, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run: %w", err)
	}
	return data, nil
}

func parseRunDoc(data []byte, doc any) (*model.Run, error) {
	if err := runSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	if run.DocumentType == "" {
		run.DocumentType = model.DocumentTRP
	}
	return &run, nil
}

func decodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
