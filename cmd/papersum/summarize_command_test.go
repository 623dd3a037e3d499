package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papersum/internal/services"
	"papersum/internal/testsupport"
)

func TestSummarizeCommandWritesSummaries(t *testing.T) {
	fake := testsupport.NewFakeGemini(t, nil)
	env := setupCLITestEnv(t, testsupport.WithGeminiURL(fake.URL), testsupport.WithPDFs("alpha", "beta"))

	stdout, stderr, err := runCLI(t, []string{"summarize"}, env.configPath)
	if err != nil {
		t.Fatalf("summarize failed: %v\nstderr: %s", err, stderr)
	}
	if got := readFile(t, filepath.Join(env.cfg.Paths.SummaryDir, "alpha.md")); got != "Summary of alpha.pdf" {
		t.Fatalf("unexpected alpha summary %q", got)
	}
	if got := readFile(t, filepath.Join(env.cfg.Paths.SummaryDir, "beta.md")); got != "Summary of beta.pdf" {
		t.Fatalf("unexpected beta summary %q", got)
	}
	requireContains(t, stdout, "Succeeded")
	requireContains(t, stderr, "run complete")

	history, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	requireContains(t, history, "summarize")
}

func TestSummarizeCommandSkipsExistingSummaries(t *testing.T) {
	fake := testsupport.NewFakeGemini(t, nil)
	env := setupCLITestEnv(t, testsupport.WithGeminiURL(fake.URL), testsupport.WithPDFs("alpha"))
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.SummaryDir, "alpha.md"), []byte("old"), 0o644); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	_, stderr, err := runCLI(t, []string{"summarize"}, env.configPath)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	requireContains(t, stderr, "nothing to do")
	if fake.Uploads() != 0 {
		t.Fatalf("expected no uploads, got %d", fake.Uploads())
	}

	// Naming the PDF regenerates it.
	if _, _, err := runCLI(t, []string{"summarize", "--pdf", "alpha.pdf"}, env.configPath); err != nil {
		t.Fatalf("summarize --pdf failed: %v", err)
	}
	if got := readFile(t, filepath.Join(env.cfg.Paths.SummaryDir, "alpha.md")); got != "Summary of alpha.pdf" {
		t.Fatalf("expected regenerated summary, got %q", got)
	}
}

func TestSummarizeCommandFailuresDoNotAbortRun(t *testing.T) {
	fake := testsupport.NewFakeGemini(t, func(name string) (int, string) {
		if name == "bad.pdf" {
			return http.StatusBadRequest, `{"error":{"code":400,"message":"bad pdf","status":"INVALID_ARGUMENT"}}`
		}
		return http.StatusOK, "ok"
	})
	env := setupCLITestEnv(t, testsupport.WithGeminiURL(fake.URL), testsupport.WithPDFs("bad", "good"))

	stdout, _, err := runCLI(t, []string{"summarize"}, env.configPath)
	if err != nil {
		t.Fatalf("expected exit 0 without --fail-on-error, got %v", err)
	}
	requireContains(t, stdout, "bad")
	requireContains(t, stdout, string(services.KindInvalidRequest))
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.SummaryDir, "good.md")); err != nil {
		t.Fatalf("expected good summary: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.SummaryDir, "bad.md")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no summary for failed item, got %v", err)
	}

	_, _, err = runCLI(t, []string{"summarize", "--pdf", "bad", "--fail-on-error"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 items failed") {
		t.Fatalf("expected failure summary error, got %v", err)
	}
}

func TestSummarizeCommandRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""), testsupport.WithPDFs("alpha"))

	_, _, err := runCLI(t, []string{"summarize"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestSummarizeCommandUnknownPDF(t *testing.T) {
	fake := testsupport.NewFakeGemini(t, nil)
	env := setupCLITestEnv(t, testsupport.WithGeminiURL(fake.URL))

	_, _, err := runCLI(t, []string{"summarize", "--pdf", "missing"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
