package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockDownloader struct {
	mu     sync.Mutex
	failOn map[string]bool
	calls  []string
}

func (m *mockDownloader) Download(ctx context.Context, runID string) (string, error) {
	time.Sleep(2 * time.Millisecond)
	m.mu.Lock()
	m.calls = append(m.calls, runID)
	m.mu.Unlock()
	if m.failOn[runID] {
		return "", errors.New("download failed")
	}
	return runID + ".pdf", nil
}

func TestBatchProcessor_ProcessIDs_Order(t *testing.T) {
	d := &mockDownloader{failOn: map[string]bool{"r3": true}}
	processor := NewBatchProcessor(d, 2)

	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, "r"+string(rune('a'+i)))
	}
	ids = append(ids, "r3")

	results := processor.ProcessIDs(context.Background(), ids)
	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	for i, r := range results {
		if r.RunID != ids[i] {
			t.Errorf("result %d: expected %s, got %s", i, ids[i], r.RunID)
		}
	}

	last := results[len(results)-1]
	if last.Error == nil {
		t.Error("expected error for r3")
	}
	if results[0].Path != "ra.pdf" {
		t.Errorf("unexpected path %q", results[0].Path)
	}
}

// busyDownloader fails a run that is already downloading
type busyDownloader struct {
	mu     sync.Mutex
	active map[string]bool
	gate   chan struct{}
}

func (d *busyDownloader) Download(ctx context.Context, runID string) (string, error) {
	d.mu.Lock()
	if d.active[runID] {
		d.mu.Unlock()
		return "", errors.New("download already in progress")
	}
	d.active[runID] = true
	d.mu.Unlock()

	<-d.gate
	return runID + ".pdf", nil
}

func TestBatchProcessor_RepeatedIDKeepsEachOutcome(t *testing.T) {
	d := &busyDownloader{active: map[string]bool{}, gate: make(chan struct{})}
	processor := NewBatchProcessor(d, 2)

	// The second copy fails while the first holds the gate
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(d.gate)
	}()
	results := processor.ProcessIDs(context.Background(), []string{"a", "a"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0] == results[1] {
		t.Fatal("both rows share one result")
	}

	var ok, failed int
	for _, r := range results {
		if r.RunID != "a" {
			t.Errorf("unexpected run id %q", r.RunID)
		}
		if r.Error != nil {
			failed++
		} else {
			ok++
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("expected one success and one failure, got %d and %d", ok, failed)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockDownloader{}, 2)
	if got := processor.ProcessIDs(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&mockDownloader{}, 1)
	results := processor.ProcessIDs(ctx, []string{"a", "b", "c", "d", "e", "f"})
	if len(results) != 6 {
		t.Fatalf("expected a result per id, got %d", len(results))
	}
}

func TestReadIDsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	content := strings.Join([]string{
		"# runs to fetch",
		"run-1",
		"",
		"  run-2  ",
		"run-1",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadIDsFromFile failed: %v", err)
	}
	if strings.Join(ids, ",") != "run-1,run-2" {
		t.Errorf("unexpected ids %v", ids)
	}

	if _, err := ReadIDsFromFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
