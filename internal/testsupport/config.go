package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"papersum/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose paths all live under one temp directory
// per test. Directories are created and a one-line prompt file is written.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Gemini.APIKey = "test-key"
	cfgVal.Paths.PDFDir = filepath.Join(base, "pdfs")
	cfgVal.Paths.SummaryDir = filepath.Join(base, "summaries")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Paths.PromptFile = filepath.Join(base, "prompt.txt")
	cfgVal.Paths.Workbook = filepath.Join(base, "review.xlsx")
	cfgVal.Paths.ConcatOutput = filepath.Join(base, "concatenated.txt")
	cfgVal.Dispatch.BackoffSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, dir := range []string{cfgVal.Paths.PDFDir, cfgVal.Paths.SummaryDir, cfgVal.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(cfgVal.Paths.PromptFile, []byte("Summarize the paper.\n"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGeminiURL points the Gemini client at a test server.
func WithGeminiURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.BaseURL = url
	}
}

// WithAPIKey overrides the Gemini API key; an empty key simulates a missing one.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.APIKey = key
	}
}

// WithPDFs writes small placeholder PDFs named after ids into the PDF directory.
func WithPDFs(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, id := range ids {
			WritePDF(b.t, filepath.Join(b.cfg.Paths.PDFDir, id+".pdf"))
		}
	}
}

// WithMaxConcurrency bounds the summarize dispatcher.
func WithMaxConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.MaxConcurrency = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.PDFDir)
}
