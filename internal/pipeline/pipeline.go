// Package pipeline ties the run repository to the field display pipeline:
// fetch a run, organize its fields into sections and optionally digest them.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/fields"
	"github.com/ppiankov/recebe/internal/llm"
	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/store"
)

// Refresher is implemented by repositories that can bypass their cache
type Refresher interface {
	Refresh(ctx context.Context, id string) (*model.Run, error)
}

// Pipeline orchestrates run display and creation
type Pipeline struct {
	repo     store.Repository
	catalog  *fields.Catalog
	digester llm.Provider // nil when digests are disabled
	logger   *zap.Logger
}

// New creates a pipeline. A nil catalog uses the default catalog.
func New(repo store.Repository, catalog *fields.Catalog, digester llm.Provider, logger *zap.Logger) *Pipeline {
	if catalog == nil {
		catalog = fields.DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		repo:     repo,
		catalog:  catalog,
		digester: digester,
		logger:   logger,
	}
}

// ShowOptions controls Show
type ShowOptions struct {
	// Refresh skips the short-lived run cache
	Refresh bool
	// Digest asks the LLM provider for a digest of a completed run
	Digest bool
}

// ShowResult is a run ready to render
type ShowResult struct {
	Run      *model.Run
	Sections []fields.SectionResult
	Digest   *llm.DigestResponse
	// DigestErr is set when a requested digest failed. The run is still shown.
	DigestErr error
}

// Show fetches a run and builds its display sections. Sections are only
// built for completed runs; a failed run carries the server message instead.
func (p *Pipeline) Show(ctx context.Context, id string, opts ShowOptions) (*ShowResult, error) {
	run, err := p.fetch(ctx, id, opts.Refresh)
	if err != nil {
		return nil, err
	}

	result := &ShowResult{Run: run}
	if run.HasFields() {
		result.Sections = p.catalog.Build(run.Output.Fields)
	}

	if opts.Digest && len(result.Sections) > 0 {
		result.Digest, result.DigestErr = p.digest(ctx, run, result.Sections)
	}

	p.logger.Debug("run shown",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("sections", len(result.Sections)),
	)
	return result, nil
}

// GenerateResult is the outcome of Generate
type GenerateResult struct {
	Run  *model.Run
	Runs *model.RunPage // First page of the listing, reloaded after creation
}

// Generate creates a run, then reloads the run itself and the run listing
// from the repository. Nothing is patched locally.
func (p *Pipeline) Generate(ctx context.Context, req store.CreateRequest) (*GenerateResult, error) {
	id, err := p.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	p.logger.Info("run created", zap.String("run_id", id), zap.String("document_type", string(req.DocumentType)))

	run, err := p.fetch(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("fetch run %s: %w", id, err)
	}

	runs, err := p.repo.List(ctx, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("reload runs: %w", err)
	}

	return &GenerateResult{Run: run, Runs: runs}, nil
}

// Digest runs only on display sections, never on the raw record
func (p *Pipeline) digest(ctx context.Context, run *model.Run, sections []fields.SectionResult) (*llm.DigestResponse, error) {
	if p.digester == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}
	resp, err := p.digester.Digest(ctx, llm.DigestRequest{Run: run, Sections: sections})
	if err != nil {
		p.logger.Warn("digest failed", zap.String("run_id", run.ID), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (p *Pipeline) fetch(ctx context.Context, id string, refresh bool) (*model.Run, error) {
	if refresh {
		if r, ok := p.repo.(Refresher); ok {
			return r.Refresh(ctx, id)
		}
	}
	return p.repo.Get(ctx, id)
}
