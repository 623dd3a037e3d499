package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papersum/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckPromptFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(good, []byte("Summarize."), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckPromptFile(good); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	blank := filepath.Join(dir, "blank.txt")
	if err := os.WriteFile(blank, []byte(" \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckPromptFile(blank); result.Passed || !strings.Contains(result.Detail, "empty") {
		t.Fatalf("expected empty failure, got: %+v", result)
	}
	if result := CheckPromptFile(filepath.Join(dir, "missing.txt")); result.Passed {
		t.Fatal("expected failure for missing prompt")
	}
	if result := CheckPromptFile(dir); result.Passed {
		t.Fatal("expected failure for directory prompt path")
	}
}

func geminiConfig(baseURL, key string) *config.Config {
	cfg := config.Default()
	cfg.Gemini.BaseURL = baseURL
	cfg.Gemini.APIKey = key
	return &cfg
}

func TestCheckGemini_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/gemini-2.0-flash"}`))
	}))
	defer srv.Close()

	result := CheckGemini(context.Background(), "Gemini", geminiConfig(srv.URL, "good-key"))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	result = CheckGemini(context.Background(), "Gemini", geminiConfig(srv.URL, "bad-key"))
	if result.Passed || !strings.Contains(result.Detail, "authentication failed") {
		t.Fatalf("expected auth failure, got: %+v", result)
	}
}

func TestCheckGemini_MissingKey(t *testing.T) {
	result := CheckGemini(context.Background(), "Gemini", geminiConfig("http://127.0.0.1:0", ""))
	if result.Passed || !strings.Contains(result.Detail, config.APIKeyEnv) {
		t.Fatalf("expected missing key failure, got: %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.PDFDir = filepath.Join(base, "pdfs")
	cfg.Paths.SummaryDir = filepath.Join(base, "summaries")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.PromptFile = filepath.Join(base, "prompt.txt")
	cfg.Paths.Workbook = filepath.Join(base, "review.xlsx")
	for _, dir := range []string{cfg.Paths.PDFDir, cfg.Paths.SummaryDir, cfg.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(cfg.Paths.PromptFile, []byte("Summarize."), 0o644); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg, true)
	if len(results) != 5 {
		t.Fatalf("expected 5 local checks, got %d", len(results))
	}
	if !AllPassed(results) {
		t.Fatalf("expected required checks to pass (missing workbook is optional): %+v", results)
	}

	if err := os.Remove(cfg.Paths.PromptFile); err != nil {
		t.Fatal(err)
	}
	if AllPassed(RunAll(context.Background(), &cfg, true)) {
		t.Fatal("expected failure once the prompt is gone")
	}
}
