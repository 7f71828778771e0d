package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/record"
)

// FileStore keeps one JSON file per run under dir/runs and generated
// documents under dir/documents.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewFileStore creates the directory layout if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store needs a directory")
	}
	for _, sub := range []string{"runs", "documents"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Create writes a PENDING run
func (s *FileStore) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	input := req.Input
	input.Files = fileNames(req.Files)
	run := model.Run{
		ID:           uuid.NewString(),
		DocumentType: req.DocumentType,
		Status:       model.StatusPending,
		CreatedAt:    s.now().UTC(),
		Input:        input,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeRun(&run); err != nil {
		return "", err
	}
	return run.ID, nil
}

// Get reads and validates one run file
func (s *FileStore) Get(ctx context.Context, id string) (*model.Run, error) {
	if !validID(id) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readRun(id)
}

// List pages the stored runs newest first
func (s *FileStore) List(ctx context.Context, q Query) (*model.RunPage, error) {
	runs, err := s.all()
	if err != nil {
		return nil, err
	}
	return paginate(runs, q)
}

// Summary counts the stored runs per status
func (s *FileStore) Summary(ctx context.Context) (*model.Summary, error) {
	runs, err := s.all()
	if err != nil {
		return nil, err
	}
	return summarize(runs), nil
}

// Download reads a stored document
func (s *FileStore) Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != model.StatusCompleted {
		return nil, fmt.Errorf("run %s is %s: %w", id, run.Status.Label(), ErrNotReady)
	}

	data, err := os.ReadFile(s.documentPath(id, format))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("run %s %s: %w", id, format, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// Replace overwrites an existing run file
func (s *FileStore) Replace(run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readRun(run.ID); err != nil {
		return err
	}
	return s.writeRun(&run)
}

// PutDocument stores a generated document for a run
func (s *FileStore) PutDocument(id string, format model.DownloadFormat, data []byte) error {
	if _, err := s.Get(context.Background(), id); err != nil {
		return err
	}
	if err := os.WriteFile(s.documentPath(id, format), data, 0o600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

func (s *FileStore) all() ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]model.Run, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		run, err := s.readRun(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (s *FileStore) readRun(id string) (*model.Run, error) {
	data, err := os.ReadFile(s.runPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	run, err := record.ParseRun(data)
	if err != nil {
		return nil, fmt.Errorf("run file %s: %w", id, err)
	}
	return run, nil
}

func (s *FileStore) writeRun(run *model.Run) error {
	data, err := record.Encode(run)
	if err != nil {
		return err
	}
	tmp := s.runPath(run.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if err := os.Rename(tmp, s.runPath(run.ID)); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *FileStore) runPath(id string) string {
	return filepath.Join(s.dir, "runs", id+".json")
}

func (s *FileStore) documentPath(id string, format model.DownloadFormat) string {
	return filepath.Join(s.dir, "documents", id+"."+string(format))
}

// validID rejects ids that would escape the store directory
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
