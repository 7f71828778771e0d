package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Downloader saves the generated document of one run and returns its path
type Downloader interface {
	Download(ctx context.Context, runID string) (string, error)
}

// DownloadJob downloads one run's document
type DownloadJob struct {
	RunID      string
	Downloader Downloader

	seq int // Position in the batch
}

// Execute executes the download job
func (j *DownloadJob) Execute(ctx context.Context) Result {
	path, err := j.Downloader.Download(ctx, j.RunID)
	return &DownloadResult{RunID: j.RunID, Path: path, Error: err, seq: j.seq}
}

// DownloadResult is the outcome of one download
type DownloadResult struct {
	RunID string
	Path  string
	Error error

	seq int
}

// GetError returns the download error
func (r *DownloadResult) GetError() error {
	return r.Error
}

// BatchProcessor downloads several runs concurrently
type BatchProcessor struct {
	downloader  Downloader
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(downloader Downloader, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		downloader:  downloader,
		concurrency: concurrency,
	}
}

// ProcessIDs downloads the given runs. Results come back in input order, one
// per id, so a repeated id gets its own outcome.
func (b *BatchProcessor) ProcessIDs(ctx context.Context, ids []string) []*DownloadResult {
	if len(ids) == 0 {
		return []*DownloadResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Results are drained by Wait, so submit from a separate goroutine
	// to avoid filling both buffered channels.
	go func() {
		for i, id := range ids {
			if !pool.Submit(&DownloadJob{RunID: id, Downloader: b.downloader, seq: i}) {
				break
			}
		}
		pool.closeQueue()
	}()

	out := make([]*DownloadResult, len(ids))
	for _, result := range pool.collect() {
		r := result.(*DownloadResult)
		out[r.seq] = r
	}

	for i, id := range ids {
		if out[i] == nil {
			out[i] = &DownloadResult{RunID: id, Error: fmt.Errorf("download not started: %w", context.Cause(ctx)), seq: i}
		}
	}
	return out
}

// ProcessFile reads run ids from a file and downloads them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DownloadResult, error) {
	ids, err := ReadIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read run ids: %w", err)
	}

	return b.ProcessIDs(ctx, ids), nil
}

// ReadIDsFromFile reads run ids, one per line, skipping blanks, comments and duplicates
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
