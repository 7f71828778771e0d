package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/recebe/internal/fields"
	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/store"
)

type fakePrompter struct {
	input    string
	password string
	choice   int
	asked    []string
}

func (f *fakePrompter) Input(ctx context.Context, cfg InputConfig) (string, error) {
	f.asked = append(f.asked, cfg.Message)
	return f.input, nil
}

func (f *fakePrompter) Password(ctx context.Context, cfg InputConfig) (string, error) {
	f.asked = append(f.asked, cfg.Message)
	return f.password, nil
}

func (f *fakePrompter) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	f.asked = append(f.asked, cfg.Message)
	return f.choice, nil
}

// setupHome points HOME at a temp dir and selects the file backend
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RECEBE_BACKEND", "file")
	t.Setenv("RECEBE_STORE_DIR", filepath.Join(home, "runs"))
	t.Setenv("RECEBE_API_BASE_URL", "")

	prevInteractive, prevPrompter := interactive, prompter
	interactive = func() bool { return false }
	t.Cleanup(func() {
		interactive, prompter = prevInteractive, prevPrompter
	})
	return home
}

// resetFlags restores every flag to its default between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// decodeAll reads consecutive JSON documents
func decodeAll(t *testing.T, out string, targets ...any) {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(out))
	for _, target := range targets {
		require.NoError(t, dec.Decode(target))
	}
}

type runView struct {
	Run      model.Run              `json:"run"`
	Sections []fields.SectionResult `json:"sections"`
	Error    string                 `json:"error"`
}

func generateRun(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	doc := writeFile(t, dir, "contrato.pdf", "%PDF-1.4")
	args := append([]string{"generate", "TRP", doc, "-o", "json"}, extra...)
	out, _, err := execute(t, args...)
	require.NoError(t, err)

	var view runView
	var page model.RunPage
	decodeAll(t, out, &view, &page)
	require.NotEmpty(t, view.Run.ID)
	return view.Run.ID
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RECEBE_API_TIMEOUT", "45s")
	t.Setenv("RECEBE_RATE_LIMITING_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("RECEBE_CACHE_ENABLED", "false")
	t.Setenv("RECEBE_LLM_PROVIDER", "openai")
	t.Setenv("RECEBE_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RECEBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	defaults := model.DefaultConfig()
	assert.Equal(t, "45s", cfg.API.Timeout.String())
	assert.Equal(t, 2.5, cfg.RateLimiting.RequestsPerSecond)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, defaults.API.BaseURL, cfg.API.BaseURL)
	assert.Equal(t, defaults.Concurrency.Downloads, cfg.Concurrency.Downloads)
	assert.Equal(t, filepath.Join(home, ".recebe", "runs"), cfg.Store.Dir)
}

func TestParseMeta(t *testing.T) {
	got, err := parseMeta([]string{"lote=3", " setor = compras ", "vazio="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lote": "3", "setor": "compras", "vazio": ""}, got)

	got, err = parseMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseMeta([]string{"sem-igual"})
	assert.Error(t, err)
	_, err = parseMeta([]string{"=x"})
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	setupHome(t)
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "recebe v"+Version+"\n", out)
}

func TestGenerate_ShowsRunAndReloadedList(t *testing.T) {
	home := setupHome(t)
	doc := writeFile(t, home, "contrato.pdf", "%PDF-1.4")

	out, stderr, err := execute(t, "generate", "trp", doc,
		"--contract", "058/2025", "--invoice", "77", "--meta", "lote=3", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Submitting 1 file(s) for TRP")

	var view runView
	var page model.RunPage
	decodeAll(t, out, &view, &page)

	assert.Equal(t, model.StatusPending, view.Run.Status)
	assert.Equal(t, model.DocumentTRP, view.Run.DocumentType)
	assert.Equal(t, "058/2025", view.Run.Input.ContractNumber)
	assert.Equal(t, "77", view.Run.Input.InvoiceNumber)
	assert.Equal(t, map[string]string{"lote": "3"}, view.Run.Input.Metadata)
	assert.Equal(t, []string{"contrato.pdf"}, view.Run.Input.Files)
	assert.Empty(t, view.Sections)

	require.Len(t, page.Items, 1)
	assert.Equal(t, view.Run.ID, page.Items[0].ID)
}

func TestGenerate_PromptsForContract(t *testing.T) {
	home := setupHome(t)
	fake := &fakePrompter{input: "12/2024"}
	prompter = fake
	interactive = func() bool { return true }

	id := generateRun(t, home)
	assert.Equal(t, []string{"Contract number:"}, fake.asked)

	out, _, err := execute(t, "runs", "show", id, "-o", "json")
	require.NoError(t, err)
	var view runView
	decodeAll(t, out, &view)
	assert.Equal(t, "12/2024", view.Run.Input.ContractNumber)
}

func TestGenerate_Rejects(t *testing.T) {
	home := setupHome(t)
	doc := writeFile(t, home, "termo.pdf", "%PDF-1.4")

	_, _, err := execute(t, "generate", "XYZ", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document type")

	_, _, err = execute(t, "generate", "TRD", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRD needs")

	_, _, err = execute(t, "generate", "TRP", filepath.Join(home, "missing.pdf"))
	assert.Error(t, err)

	_, _, err = execute(t, "generate", "TRP", doc, "--meta", "broken")
	assert.Error(t, err)
}

func TestRuns_ShowCompletedAndFailed(t *testing.T) {
	home := setupHome(t)
	done := generateRun(t, home, "--contract", "058/2025")
	failed := generateRun(t, home, "--contract", "059/2025")

	fs, err := store.NewFileStore(filepath.Join(home, "runs"))
	require.NoError(t, err)
	ctx := context.Background()

	run, err := fs.Get(ctx, done)
	require.NoError(t, err)
	run.Status = model.StatusCompleted
	run.Output = &model.RunOutput{Fields: model.RecordFromMap(map[string]any{
		"numero_contrato": "058/2025",
		"numero_nf":       "N/A",
		"observacoes":     "NAO_DECLARADO",
	})}
	require.NoError(t, fs.Replace(*run))

	run, err = fs.Get(ctx, failed)
	require.NoError(t, err)
	run.Status = model.StatusFailed
	run.Output = &model.RunOutput{Error: "Nota fiscal ilegível"}
	require.NoError(t, fs.Replace(*run))

	out, _, err := execute(t, "runs", "show", done, "-o", "json")
	require.NoError(t, err)
	var view runView
	decodeAll(t, out, &view)
	require.NotEmpty(t, view.Sections)
	assert.Equal(t, "IDENTIFICATION", view.Sections[0].Title)
	assert.Equal(t, "058/2025", view.Sections[0].Fields[0].Value)

	out, _, err = execute(t, "runs", "show", done, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "### IDENTIFICATION")
	assert.Contains(t, out, "| Contract Number | 058/2025 |")
	assert.NotContains(t, out, "Notes")

	out, _, err = execute(t, "runs", "show", failed, "-o", "json")
	require.NoError(t, err)
	view = runView{}
	decodeAll(t, out, &view)
	assert.Equal(t, "Nota fiscal ilegível", view.Error)
	assert.Empty(t, view.Sections)

	_, stderr, err := execute(t, "runs", "show", done, "--digest", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Digest unavailable")

	_, _, err = execute(t, "runs", "show", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, "Document not found.", err.Error())
}

func TestRuns_ListAndSummary(t *testing.T) {
	home := setupHome(t)
	for i := 0; i < 3; i++ {
		generateRun(t, home, "--contract", "1/2025")
	}

	out, _, err := execute(t, "runs", "list", "--limit", "2", "-o", "json")
	require.NoError(t, err)
	var page model.RunPage
	decodeAll(t, out, &page)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	out, _, err = execute(t, "runs", "list", "--cursor", page.NextCursor, "-o", "json")
	require.NoError(t, err)
	var rest model.RunPage
	decodeAll(t, out, &rest)
	assert.Len(t, rest.Items, 1)

	out, _, err = execute(t, "runs", "list", "--status", "completed", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found.")

	_, _, err = execute(t, "runs", "list", "--status", "archived")
	assert.Error(t, err)

	out, _, err = execute(t, "runs", "summary", "-o", "json")
	require.NoError(t, err)
	var summary model.Summary
	decodeAll(t, out, &summary)
	assert.Equal(t, model.Summary{Total: 3, Pending: 3}, summary)
}

func docx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, "<w:document/>")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownload(t *testing.T) {
	home := setupHome(t)
	ready := generateRun(t, home, "--contract", "1/2025")
	pending := generateRun(t, home, "--contract", "2/2025")

	fs, err := store.NewFileStore(filepath.Join(home, "runs"))
	require.NoError(t, err)
	run, err := fs.Get(context.Background(), ready)
	require.NoError(t, err)
	run.Status = model.StatusCompleted
	require.NoError(t, fs.Replace(*run))
	require.NoError(t, fs.PutDocument(ready, model.FormatDOCX, docx(t)))

	outDir := filepath.Join(home, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o700))
	out, _, err := execute(t, "download", ready, "--format", "docx", "--dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+ready)
	assert.FileExists(t, filepath.Join(outDir, "run-"+ready+".docx"))

	ids := writeFile(t, home, "ids.txt", "# batch\n"+ready+"\n\n"+pending+"\n")
	out, stderr, err := execute(t, "download", "--file", ids, "--format", "docx", "--dir", outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 downloads failed")
	assert.Contains(t, out, "✓ "+ready)
	assert.Contains(t, stderr, "✗ "+pending)

	_, _, err = execute(t, "download")
	assert.Error(t, err)
	_, _, err = execute(t, "download", ready, "--format", "odt")
	assert.Error(t, err)
}

func TestSession_Commands(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	_, _, err = execute(t, "session", "login")
	assert.Error(t, err)

	_, _, err = execute(t, "session", "login", "--token", "tok", "--org", "42")
	require.NoError(t, err)

	_, _, err = execute(t, "session", "theme", "dracula")
	require.NoError(t, err)
	_, _, err = execute(t, "session", "theme", "neon")
	assert.Error(t, err)

	out, _, err = execute(t, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in")
	assert.Contains(t, out, "Organization: 42")
	assert.Contains(t, out, "Theme: dracula")

	_, _, err = execute(t, "session", "org", "7")
	require.NoError(t, err)

	_, _, err = execute(t, "session", "logout")
	require.NoError(t, err)
	out, _, err = execute(t, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Organization: -")
	assert.Contains(t, out, "Theme: dracula")
}

func TestSession_Prompts(t *testing.T) {
	setupHome(t)
	fake := &fakePrompter{password: "secret", choice: 2}
	prompter = fake
	interactive = func() bool { return true }

	_, _, err := execute(t, "session", "login")
	require.NoError(t, err)
	out, _, err := execute(t, "session", "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "Theme: light")
	assert.Equal(t, []string{"Access token:", "Theme:"}, fake.asked)

	out, _, err = execute(t, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in")
}

func TestRemote_RequiresSession(t *testing.T) {
	setupHome(t)
	t.Setenv("RECEBE_BACKEND", "remote")

	_, _, err := execute(t, "runs", "list")
	require.Error(t, err)
	assert.Equal(t, "You are not signed in. Run 'recebe session login' first.", err.Error())
}

func TestRemote_UnauthorizedEndsSession(t *testing.T) {
	setupHome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	t.Setenv("RECEBE_BACKEND", "remote")
	t.Setenv("RECEBE_API_BASE_URL", srv.URL)

	_, _, err := execute(t, "session", "login", "--token", "stale")
	require.NoError(t, err)

	_, _, err = execute(t, "runs", "summary")
	require.Error(t, err)
	assert.Equal(t, "Your session has expired. Sign in again.", err.Error())

	out, _, err := execute(t, "session", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestHealth(t *testing.T) {
	setupHome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()
	t.Setenv("RECEBE_API_BASE_URL", srv.URL)

	out, _, err := execute(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "is up")

	out, _, err = execute(t, "health", "--wait", "--attempts", "2", "--delay", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "is up")
}

func TestUnknownBackend(t *testing.T) {
	setupHome(t)
	t.Setenv("RECEBE_BACKEND", "ftp")

	_, _, err := execute(t, "runs", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestConfig_InitAndShow(t *testing.T) {
	home := setupHome(t)
	t.Setenv("RECEBE_CONCURRENCY_DOWNLOADS", "9")

	out, _, err := execute(t, "config", "init")
	require.NoError(t, err)
	path := filepath.Join(home, ".recebe", "config.yaml")
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, _, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: file")
	assert.Contains(t, out, "downloads: 9")
	assert.NotContains(t, out, "api_key")
}
