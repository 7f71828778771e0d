package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/recebe/internal/model"
)

// Memory is an in-process repository. Runs only change through Replace,
// which stands in for the service moving a run between states.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]model.Run
	docs map[string]map[model.DownloadFormat][]byte
	now  func() time.Time
}

// NewMemory creates an empty repository
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[string]model.Run),
		docs: make(map[string]map[model.DownloadFormat][]byte),
		now:  time.Now,
	}
}

// Create stores a PENDING run
func (m *Memory) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	input := req.Input
	input.Files = fileNames(req.Files)

	run := model.Run{
		ID:           uuid.NewString(),
		DocumentType: req.DocumentType,
		Status:       model.StatusPending,
		CreatedAt:    m.now().UTC(),
		Input:        input,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return run.ID, nil
}

// Get returns a copy of the run
func (m *Memory) Get(ctx context.Context, id string) (*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return &run, nil
}

// List pages the runs newest first
func (m *Memory) List(ctx context.Context, q Query) (*model.RunPage, error) {
	return paginate(m.snapshot(), q)
}

// Summary counts runs per status
func (m *Memory) Summary(ctx context.Context) (*model.Summary, error) {
	return summarize(m.snapshot()), nil
}

// Download returns a document stored with PutDocument
func (m *Memory) Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if run.Status != model.StatusCompleted {
		return nil, fmt.Errorf("run %s is %s: %w", id, run.Status.Label(), ErrNotReady)
	}
	data, ok := m.docs[id][format]
	if !ok {
		return nil, fmt.Errorf("run %s %s: %w", id, format, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Replace swaps a stored run for a new version. The run must exist.
func (m *Memory) Replace(run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	m.runs[run.ID] = run
	return nil
}

// PutDocument attaches a generated document to a run
func (m *Memory) PutDocument(id string, format model.DownloadFormat, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if m.docs[id] == nil {
		m.docs[id] = make(map[model.DownloadFormat][]byte)
	}
	m.docs[id][format] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) snapshot() []model.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	return runs
}
