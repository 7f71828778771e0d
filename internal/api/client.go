// Package api is the HTTP client for the document-generation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/record"
	"github.com/ppiankov/recebe/internal/worker"
)

// TokenSource supplies the credentials injected into every request
type TokenSource interface {
	Token() string
	OrganizationID() string
}

// Client talks to the run endpoints of the service.
// Requests are never retried automatically.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	auth       TokenSource
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTokenSource sets the session used for authentication headers
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.auth = ts }
}

// WithLimiter paces outgoing requests
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the service at cfg.BaseURL
func NewClient(cfg model.APIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy),
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		logger:    zap.NewNop(),
	}
	if c.maxBytes <= 0 {
		c.maxBytes = 50 << 20
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// File is one uploaded document
type File struct {
	Name string
	Body io.Reader
}

// CreateRunRequest starts a document-generation run
type CreateRunRequest struct {
	DocumentType model.DocumentType
	Input        model.RunInput
	Files        []File
}

type runMetadata struct {
	DocumentType model.DocumentType `json:"document_type"`
	model.RunInput
}

// CreateRun uploads the files with their metadata and returns the new run id
func (c *Client) CreateRun(ctx context.Context, req CreateRunRequest) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range req.Files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return "", fmt.Errorf("write file %s: %w", f.Name, err)
		}
	}

	meta, err := json.Marshal(runMetadata{DocumentType: req.DocumentType, RunInput: req.Input})
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/runs", &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("%w: %v", record.ErrInvalidRun, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: missing run id", record.ErrInvalidRun)
	}
	return created.ID, nil
}

// GetRun fetches one run
func (c *Client) GetRun(ctx context.Context, id string) (*model.Run, error) {
	body, err := c.do(ctx, http.MethodGet, "/runs/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	return record.ParseRun(body)
}

// ListQuery filters a run listing
type ListQuery struct {
	Status model.RunStatus
	Cursor string
	Limit  int
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListRuns fetches one page of runs
func (c *Client) ListRuns(ctx context.Context, q ListQuery) (*model.RunPage, error) {
	path := "/runs"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	return record.ParseRunPage(body)
}

// Summary fetches run counts per status
func (c *Client) Summary(ctx context.Context) (*model.Summary, error) {
	body, err := c.do(ctx, http.MethodGet, "/runs/summary", nil, "")
	if err != nil {
		return nil, err
	}
	var s model.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrInvalidRun, err)
	}
	return &s, nil
}

// Download fetches the generated document of a run
func (c *Client) Download(ctx context.Context, id string, format model.DownloadFormat) ([]byte, error) {
	path := "/runs/" + url.PathEscape(id) + "/download?format=" + url.QueryEscape(string(format))
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// Health checks that the service answers
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	return err
}

// WaitReady polls the health endpoint until it answers or attempts run out
func (c *Client) WaitReady(ctx context.Context, attempts uint, delay time.Duration) error {
	return retry.Do(
		func() error {
			return c.Health(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("service not ready", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	target := c.baseURL + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.auth != nil {
		if token := c.auth.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if org := c.auth.OrganizationID(); org != "" {
			req.Header.Set("X-Organization-Id", org)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", c.maxBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts the message of a {"detail": ...} or {"error": ...} body
func errorMessage(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	var detail string
	if err := json.Unmarshal(e.Detail, &detail); err == nil {
		return detail
	}
	return ""
}
