package preflight

import (
	"context"

	"papersum/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every check for the given config. The Gemini check is
// skipped when skipRemote is set.
func RunAll(ctx context.Context, cfg *config.Config, skipRemote bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("PDF directory", cfg.Paths.PDFDir),
		CheckDirectoryAccess("Summary directory", cfg.Paths.SummaryDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckPromptFile(cfg.Paths.PromptFile),
	}

	workbook := CheckReadableFile("Workbook", cfg.Paths.Workbook)
	workbook.Optional = true
	results = append(results, workbook)

	if !skipRemote {
		results = append(results, CheckGemini(ctx, "Gemini API", cfg))
	}
	return results
}

// AllPassed reports whether every required check passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}
