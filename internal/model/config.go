package model

import "time"

// Config is the complete client configuration
type Config struct {
	Backend      string             `yaml:"backend" mapstructure:"backend"` // remote, memory, file
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
}

// APIConfig configures the document-generation service client
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig configures the run fetch cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	RunTTL  time.Duration `yaml:"run_ttl" mapstructure:"run_ttl"`
	Persist bool          `yaml:"persist" mapstructure:"persist"` // Also keep entries on disk
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir"`
}

// RateLimitingConfig paces requests to the service
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	Downloads int `yaml:"downloads" mapstructure:"downloads"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format    string `yaml:"format" mapstructure:"format"` // terminal, markdown, json
	WordWrap  int    `yaml:"word_wrap" mapstructure:"word_wrap"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig configures local backends
type StoreConfig struct {
	Dir string `yaml:"dir,omitempty" mapstructure:"dir"` // Used by the file backend
}

// LLMConfig configures the optional run digest
type LLMConfig struct {
	Provider  string `yaml:"provider,omitempty" mapstructure:"provider"`
	Model     string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Strict    bool   `yaml:"strict" mapstructure:"strict"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: "remote",
		API: APIConfig{
			BaseURL:      "http://localhost:8000/api",
			Timeout:      2 * time.Minute,
			UserAgent:    "recebe/0.3",
			MaxBodyBytes: 50 << 20,
		},
		Cache: CacheConfig{
			Enabled: true,
			RunTTL:  10 * time.Second,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Downloads: 4,
		},
		Output: OutputConfig{
			Format:    "terminal",
			WordWrap:  100,
			OutputDir: ".",
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 600,
			Strict:    true,
		},
	}
}
