// Package store provides run repositories: the remote service, an in-process
// store and a directory of JSON files. The backend is chosen at startup and
// injected into the commands.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ppiankov/recebe/internal/api"
	"github.com/ppiankov/recebe/internal/model"
)

var (
	// ErrNotFound is returned for unknown run ids
	ErrNotFound = api.ErrNotFound
	// ErrNotReady is returned when downloading a run that has no document yet
	ErrNotReady = errors.New("document not ready")
)

// DefaultPageSize applies when a query has no limit
const DefaultPageSize = 20

// File is one document attached to a new run
type File struct {
	Name string
	Body io.Reader
}

// CreateRequest describes a new run
type CreateRequest struct {
	DocumentType model.DocumentType
	Input        model.RunInput
	Files        []File
}

// Validate checks the request before it is sent anywhere
func (r CreateRequest) Validate() error {
	if !r.DocumentType.Valid() {
		return fmt.Errorf("unknown document type %q", r.DocumentType)
	}
	if len(r.Files) == 0 {
		return errors.New("at least one file is required")
	}
	if r.DocumentType == model.DocumentTRD && r.Input.SourceRunID == "" {
		return errors.New("a TRD needs the id of the completed TRP it is derived from")
	}
	return nil
}

// Query filters and pages a run listing
type Query struct {
	Status model.RunStatus
	Cursor string
	Limit  int
}

// Repository is the run persistence contract
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
	Get(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context, q Query) (*model.RunPage, error)
	Summary(ctx context.Context) (*model.Summary, error)
	Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error)
}

// paginate filters runs by status, orders them newest first and cuts one page.
// The cursor is the id of the last run of the previous page.
func paginate(runs []model.Run, q Query) (*model.RunPage, error) {
	filtered := make([]model.Run, 0, len(runs))
	for _, r := range runs {
		if q.Status == "" || r.Status == q.Status {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
		return filtered[i].ID < filtered[j].ID
	})

	start := 0
	if q.Cursor != "" {
		start = -1
		for i, r := range filtered {
			if r.ID == q.Cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("unknown cursor %q", q.Cursor)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	page := &model.RunPage{Items: filtered[start:end]}
	if end < len(filtered) && end > start {
		page.NextCursor = filtered[end-1].ID
	}
	return page, nil
}

func summarize(runs []model.Run) *model.Summary {
	var s model.Summary
	for _, r := range runs {
		s.Add(r.Status)
	}
	return &s
}

func fileNames(files []File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}
