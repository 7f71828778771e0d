// Package download saves generated documents to disk. Each run has at most
// one download in flight and payloads are checked before they are written.
package download

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/model"
)

var (
	// ErrDownloadInProgress is returned while the same run is already downloading
	ErrDownloadInProgress = errors.New("download already in progress")
	// ErrInvalidDocument is returned for payloads that are not the requested format
	ErrInvalidDocument = errors.New("invalid document")
)

// Source returns the bytes of a generated document
type Source interface {
	Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error)
}

// Manager downloads documents into a directory
type Manager struct {
	src    Source
	dir    string
	format model.DownloadFormat
	logger *zap.Logger

	mu   sync.Mutex
	busy map[string]struct{}
}

// NewManager creates a manager writing into dir. format is used by Download.
func NewManager(src Source, dir string, format model.DownloadFormat, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == "" {
		format = model.FormatPDF
	}
	return &Manager{
		src:    src,
		dir:    dir,
		format: format,
		logger: logger,
		busy:   make(map[string]struct{}),
	}
}

// Download fetches the run's document in the default format. It satisfies
// worker.Downloader.
func (m *Manager) Download(ctx context.Context, runID string) (string, error) {
	return m.Fetch(ctx, runID, m.format)
}

// Fetch downloads, checks and saves one document and returns its path.
// A second call for the same run while the first is running fails with
// ErrDownloadInProgress.
func (m *Manager) Fetch(ctx context.Context, runID string, format model.DownloadFormat) (string, error) {
	if !m.acquire(runID) {
		return "", fmt.Errorf("run %s: %w", runID, ErrDownloadInProgress)
	}
	defer m.release(runID)

	data, err := m.src.Download(ctx, runID, format)
	if err != nil {
		return "", err
	}
	if err := Verify(format, data); err != nil {
		return "", fmt.Errorf("run %s: %w", runID, err)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(m.dir, FileName(runID, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	m.logger.Info("document saved",
		zap.String("run_id", runID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
		zap.String("path", path),
	)
	return path, nil
}

// Busy reports whether a download of the run is in flight
func (m *Manager) Busy(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.busy[runID]
	return ok
}

func (m *Manager) acquire(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.busy[runID]; ok {
		return false
	}
	m.busy[runID] = struct{}{}
	return true
}

func (m *Manager) release(runID string) {
	m.mu.Lock()
	delete(m.busy, runID)
	m.mu.Unlock()
}

// FileName is the name a run's document is saved under
func FileName(runID string, format model.DownloadFormat) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, runID)
	return "run-" + safe + "." + string(format)
}

// Verify checks that data is a readable document of the given format
func Verify(format model.DownloadFormat, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidDocument)
	}
	switch format {
	case model.FormatPDF:
		return verifyPDF(data)
	case model.FormatDOCX:
		return verifyDOCX(data)
	}
	return fmt.Errorf("%w: unsupported format %q", ErrInvalidDocument, format)
}

var disablePDFConfigDir sync.Once

func verifyPDF(data []byte) error {
	disablePDFConfigDir.Do(pdfapi.DisableConfigDir)

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	pages, err := pdfapi.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("%w: pdf: %v", ErrInvalidDocument, err)
	}
	if pages == 0 {
		return fmt.Errorf("%w: pdf has no pages", ErrInvalidDocument)
	}
	return nil
}

func verifyDOCX(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: docx: %v", ErrInvalidDocument, err)
	}
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			return nil
		}
	}
	return fmt.Errorf("%w: docx without word/document.xml", ErrInvalidDocument)
}
