package config

const (
	defaultPDFDir             = "data/pdfs"
	defaultSummaryDir         = "data/llm_summaries"
	defaultStateDir           = "~/.local/share/papersum"
	defaultLogDir             = "~/.local/share/papersum/logs"
	defaultPromptFile         = "config/prompt.txt"
	defaultWorkbook           = "data/deepresearch_review.xlsx"
	defaultConcatOutput       = "data/concatenated_summaries.txt"
	defaultGeminiBaseURL      = "https://generativelanguage.googleapis.com"
	defaultGeminiModel        = "gemini-2.0-flash"
	defaultMaxOutputTokens    = 4096
	defaultGeminiTimeout      = 300
	defaultMaxConcurrency     = 500
	defaultRetryBudgetSeconds = 120
	defaultBackoffSeconds     = 10
	defaultFetchConcurrency   = 8
	defaultFetchTimeout       = 60
	defaultFetchRetryBudget   = 60
	defaultFetchBackoff       = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogMaxSizeMB       = 20
	defaultLogMaxBackups      = 5
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PDFDir:       defaultPDFDir,
			SummaryDir:   defaultSummaryDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
			PromptFile:   defaultPromptFile,
			Workbook:     defaultWorkbook,
			ConcatOutput: defaultConcatOutput,
		},
		Gemini: Gemini{
			BaseURL:         defaultGeminiBaseURL,
			Model:           defaultGeminiModel,
			MaxOutputTokens: defaultMaxOutputTokens,
			TimeoutSeconds:  defaultGeminiTimeout,
		},
		Dispatch: Dispatch{
			MaxConcurrency:     defaultMaxConcurrency,
			RetryBudgetSeconds: defaultRetryBudgetSeconds,
			BackoffSeconds:     defaultBackoffSeconds,
			RetryKinds:         []string{"rate_limited"},
		},
		Fetch: Fetch{
			MaxConcurrency:     defaultFetchConcurrency,
			TimeoutSeconds:     defaultFetchTimeout,
			RetryBudgetSeconds: defaultFetchRetryBudget,
			BackoffSeconds:     defaultFetchBackoff,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
	}
}
