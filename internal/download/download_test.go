package download

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/worker"
)

// samplePDF is a small multi-page PDF written by pdfcpu
func samplePDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "sample.pdf"))
	require.NoError(t, err)
	return data
}

func docx(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<xml/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakeSource struct {
	data    map[model.DownloadFormat][]byte
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.data[format], nil
}

func TestVerify(t *testing.T) {
	assert.NoError(t, Verify(model.FormatPDF, samplePDF(t)))
	assert.NoError(t, Verify(model.FormatDOCX, docx(t, "[Content_Types].xml", "word/document.xml")))

	tests := map[string]struct {
		format model.DownloadFormat
		data   []byte
	}{
		"empty":            {model.FormatPDF, nil},
		"html as pdf":      {model.FormatPDF, []byte("<html>error</html>")},
		"pdf as docx":      {model.FormatDOCX, samplePDF(t)},
		"zip without body": {model.FormatDOCX, docx(t, "other.xml")},
		"unsupported":      {model.DownloadFormat("odt"), []byte("x")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Verify(tt.format, tt.data), ErrInvalidDocument)
		})
	}
}

func TestManager_Fetch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	src := &fakeSource{data: map[model.DownloadFormat][]byte{
		model.FormatPDF:  samplePDF(t),
		model.FormatDOCX: docx(t, "word/document.xml"),
	}}
	m := NewManager(src, dir, model.FormatPDF, nil)

	path, err := m.Download(context.Background(), "run/1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-run_1.pdf"), path)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, samplePDF(t), saved)

	path, err = m.Fetch(context.Background(), "run/1", model.FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "run-run_1.docx", filepath.Base(path))
	assert.False(t, m.Busy("run/1"))
}

func TestManager_RejectsInvalidPayload(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{data: map[model.DownloadFormat][]byte{model.FormatPDF: []byte("not a pdf")}}
	m := NewManager(src, dir, model.FormatPDF, nil)

	_, err := m.Download(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "nothing written for invalid payloads")
}

func TestManager_SourceError(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(&fakeSource{err: boom}, t.TempDir(), "", nil)

	_, err := m.Download(context.Background(), "r1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Busy("r1"))
}

func TestManager_OneDownloadPerRun(t *testing.T) {
	src := &fakeSource{
		data:    map[model.DownloadFormat][]byte{model.FormatPDF: samplePDF(t)},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager(src, t.TempDir(), model.FormatPDF, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = m.Download(context.Background(), "r1")
	}()

	<-src.started
	assert.True(t, m.Busy("r1"))

	_, err := m.Download(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrDownloadInProgress)

	close(src.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, m.Busy("r1"))
}

func TestManager_BatchWithWorkerPool(t *testing.T) {
	src := &fakeSource{data: map[model.DownloadFormat][]byte{model.FormatPDF: samplePDF(t)}}
	dir := t.TempDir()
	m := NewManager(src, dir, model.FormatPDF, nil)

	results := worker.NewBatchProcessor(m, 3).ProcessIDs(context.Background(), []string{"a", "b", "c", "d"})
	require.Len(t, results, 4)
	for _, r := range results {
		require.NoError(t, r.Error)
		assert.FileExists(t, r.Path)
	}
}
