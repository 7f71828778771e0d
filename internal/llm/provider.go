// Package llm produces optional plain-language digests of completed runs.
// Digests only restate the extracted fields; in strict mode a digest that
// quotes a document number absent from the fields is rejected.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/recebe/internal/fields"
	"github.com/ppiankov/recebe/internal/model"
)

// ErrUnknownIdentifier is returned in strict mode when the digest quotes a
// document number that is not in the run's fields
var ErrUnknownIdentifier = errors.New("digest quotes an identifier not present in the run")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Digest summarizes the display sections of a completed run
	Digest(ctx context.Context, req DigestRequest) (*DigestResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// DigestRequest contains the input for a digest
type DigestRequest struct {
	Run      *model.Run
	Sections []fields.SectionResult

	// Prompt overrides the default prompt
	Prompt string

	// Model overrides the configured model
	Model string

	MaxTokens int
}

// DigestResponse is the generated digest
type DigestResponse struct {
	Text string

	// Identifiers are the document numbers quoted in Text
	Identifiers []string

	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	// Strict rejects digests quoting identifiers missing from the run
	Strict bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string

	Logger *zap.Logger
}

// DefaultConfig returns the defaults: no provider, strict mode on
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		Strict:    true,
		MaxTokens: 600,
	}
}

const systemPrompt = "You write short, neutral digests of government contract receipt documents. You only restate facts you are given."

// BuildPrompt constructs the default digest prompt from the display sections
func BuildPrompt(run *model.Run, sections []fields.SectionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Summarize this %s document in 3-4 sentences for a contract manager.\n\n", run.DocumentType)
	b.WriteString("RULES:\n")
	b.WriteString("1. Use only the fields listed below. Do not infer missing values.\n")
	b.WriteString("2. Quote contract, invoice and process numbers exactly as written.\n")
	b.WriteString("3. When a relevant field says \"Not informed\", say it was not informed.\n\n")
	b.WriteString("FIELDS:\n")

	for _, s := range sections {
		fmt.Fprintf(&b, "[%s]\n", s.Title)
		for _, f := range s.Fields {
			if !f.ShouldDisplay {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, f.Value)
		}
	}
	return b.String()
}

var (
	// numberToken is a run of digits and slashes, so dates stay one token
	numberToken = regexp.MustCompile(`\d[\d/]*\d`)
	// identifierPattern matches numbers like 058/2025 used for contracts,
	// invoices and administrative processes
	identifierPattern = regexp.MustCompile(`^\d{1,6}/\d{4}$`)
)

// extractIdentifiers returns the distinct identifiers in text in order of appearance
func extractIdentifiers(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range numberToken.FindAllString(text, -1) {
		if !identifierPattern.MatchString(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// AllowedIdentifiers lists the identifiers a digest may quote
func AllowedIdentifiers(sections []fields.SectionResult) []string {
	var values []string
	for _, s := range sections {
		for _, f := range s.Fields {
			values = append(values, f.Value)
		}
	}
	return extractIdentifiers(strings.Join(values, "\n"))
}

// finish builds the response and enforces strict mode
func finish(text, modelName string, tokens int, req DigestRequest, strict bool) (*DigestResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty digest")
	}

	quoted := extractIdentifiers(text)
	if strict {
		allowed := make(map[string]bool)
		for _, id := range AllowedIdentifiers(req.Sections) {
			allowed[id] = true
		}
		for _, id := range quoted {
			if !allowed[id] {
				return nil, fmt.Errorf("%w: %s", ErrUnknownIdentifier, id)
			}
		}
	}

	return &DigestResponse{
		Text:        text,
		Identifiers: quoted,
		Model:       modelName,
		TokensUsed:  tokens,
	}, nil
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
