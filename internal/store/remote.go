package store

import (
	"context"

	"github.com/ppiankov/recebe/internal/api"
	"github.com/ppiankov/recebe/internal/model"
)

// Remote is the repository served by the document-generation API
type Remote struct {
	client *api.Client
}

// NewRemote wraps an API client
func NewRemote(client *api.Client) *Remote {
	return &Remote{client: client}
}

// Create uploads the files and returns the server-assigned id
func (r *Remote) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	files := make([]api.File, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, api.File{Name: f.Name, Body: f.Body})
	}
	return r.client.CreateRun(ctx, api.CreateRunRequest{
		DocumentType: req.DocumentType,
		Input:        req.Input,
		Files:        files,
	})
}

// Get fetches a run
func (r *Remote) Get(ctx context.Context, id string) (*model.Run, error) {
	return r.client.GetRun(ctx, id)
}

// List fetches a page of runs
func (r *Remote) List(ctx context.Context, q Query) (*model.RunPage, error) {
	return r.client.ListRuns(ctx, api.ListQuery{Status: q.Status, Cursor: q.Cursor, Limit: q.Limit})
}

// Summary fetches counts per status
func (r *Remote) Summary(ctx context.Context) (*model.Summary, error) {
	return r.client.Summary(ctx)
}

// Download fetches the generated document
func (r *Remote) Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error) {
	return r.client.Download(ctx, id, format)
}
