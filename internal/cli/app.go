package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/api"
	"github.com/ppiankov/recebe/internal/cache"
	"github.com/ppiankov/recebe/internal/download"
	"github.com/ppiankov/recebe/internal/llm"
	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/pipeline"
	"github.com/ppiankov/recebe/internal/render"
	"github.com/ppiankov/recebe/internal/session"
	"github.com/ppiankov/recebe/internal/store"
	"github.com/ppiankov/recebe/internal/worker"
)

// setDefaults registers every configuration key so that environment
// variables are picked up even without a config file
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.max_body_bytes", d.API.MaxBodyBytes)
	v.SetDefault("api.http_proxy", d.API.HTTPProxy)
	v.SetDefault("api.https_proxy", d.API.HTTPSProxy)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.run_ttl", d.Cache.RunTTL)
	v.SetDefault("cache.persist", d.Cache.Persist)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)
	v.SetDefault("concurrency.downloads", d.Concurrency.Downloads)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.word_wrap", d.Output.WordWrap)
	v.SetDefault("output.output_dir", d.Output.OutputDir)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.strict", d.LLM.Strict)
}

// loadConfig resolves the configuration: flags > env > file > defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	// Provider keys may come from their usual variables
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	dir, err := configDir()
	if err == nil {
		if cfg.Cache.Persist && cfg.Cache.Dir == "" {
			cfg.Cache.Dir = filepath.Join(dir, "cache")
		}
		if cfg.Store.Dir == "" {
			cfg.Store.Dir = filepath.Join(dir, "runs")
		}
	}
	return cfg, nil
}

// app is everything a command needs, built once per invocation
type app struct {
	cfg      *model.Config
	session  *session.Store
	client   *api.Client
	repo     store.Repository
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}

	sessionPath, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(sessionPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, session: sess, logger: logger}

	a.client = api.NewClient(cfg.API,
		api.WithTokenSource(sess),
		api.WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
		api.WithLogger(logger),
	)

	base, err := a.openRepository()
	if err != nil {
		return nil, err
	}
	a.repo = store.NewCached(base, cache.New(cfg.Cache), cfg.Cache.RunTTL, logger)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg, logger))
	if err != nil {
		logger.Warn("LLM provider disabled", zap.Error(err))
		provider = nil
	}
	a.pipeline = pipeline.New(a.repo, nil, provider, logger)

	return a, nil
}

func (a *app) openRepository() (store.Repository, error) {
	switch a.cfg.Backend {
	case "", "remote":
		return store.NewRemote(a.client), nil
	case "memory":
		return store.NewMemory(), nil
	case "file":
		return store.NewFileStore(a.cfg.Store.Dir)
	}
	return nil, fmt.Errorf("unknown backend %q (remote, memory, file)", a.cfg.Backend)
}

// requireSession fails early when the remote backend has no token
func (a *app) requireSession() error {
	if a.cfg.Backend != "" && a.cfg.Backend != "remote" {
		return nil
	}
	if !a.session.Active() {
		return api.ErrNoSession
	}
	return nil
}

func (a *app) renderer(cmd *cobra.Command) (*render.Renderer, error) {
	format, err := render.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return render.New(cmd.OutOrStdout(), format, a.session.Theme(), a.cfg.Output.WordWrap)
}

func (a *app) downloads(dir string, format model.DownloadFormat) *download.Manager {
	if dir == "" {
		dir = a.cfg.Output.OutputDir
	}
	return download.NewManager(a.repo, dir, format, a.logger)
}

// userError turns a command error into the message shown to users. An
// unauthorized response ends the session.
func (a *app) userError(err error) error {
	if err == nil {
		return nil
	}
	a.logger.Debug("command failed", zap.Error(err))

	if api.IsUnauthorized(err) {
		if logoutErr := a.session.Logout(); logoutErr != nil {
			a.logger.Warn("clearing session failed", zap.Error(logoutErr))
		}
	}

	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr),
		errors.Is(err, api.ErrNoSession),
		errors.Is(err, store.ErrNotFound):
		return errors.New(api.UserMessage(err))
	}
	return err
}
