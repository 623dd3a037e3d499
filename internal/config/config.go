package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"papersum/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// APIKeyEnv is the environment variable consulted when gemini.api_key is empty.
const APIKeyEnv = "GOOGLE_API_KEY"

// DotEnvFiles lists the .env files loaded before normalization, relative to
// the working directory. Variables already present in the environment win.
var DotEnvFiles = []string{filepath.Join("config", ".env"), ".env"}

// Paths contains input, output, and state locations.
type Paths struct {
	PDFDir       string `toml:"pdf_dir"`
	SummaryDir   string `toml:"summary_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
	PromptFile   string `toml:"prompt_file"`
	Workbook     string `toml:"workbook"`
	ConcatOutput string `toml:"concat_output"`
}

// Gemini contains connection and generation settings for the summarizer.
type Gemini struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	Model           string  `toml:"model"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	Temperature     float64 `toml:"temperature"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Dispatch contains the concurrency bound and retry policy for summarize runs.
type Dispatch struct {
	MaxConcurrency     int      `toml:"max_concurrency"`
	RetryBudgetSeconds int      `toml:"retry_budget_seconds"`
	BackoffSeconds     int      `toml:"backoff_seconds"`
	RetryKinds         []string `toml:"retry_kinds"`
	// RunTimeoutSeconds bounds a whole run. Zero disables the deadline.
	RunTimeoutSeconds int `toml:"run_timeout_seconds"`
}

// Fetch contains settings for downloading PDFs listed in the workbook.
type Fetch struct {
	MaxConcurrency     int    `toml:"max_concurrency"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	Sheet              string `toml:"sheet"`
	RetryBudgetSeconds int    `toml:"retry_budget_seconds"`
	BackoffSeconds     int    `toml:"backoff_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       bool   `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Metrics contains optional Prometheus textfile output.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notifications configures the optional ntfy run-completion notice.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for papersum.
//
// Configuration sections by subsystem:
//   - Paths: PDF input, summary output, state and log directories
//   - Gemini: API credentials and generation settings
//   - Dispatch: concurrency bound and retry policy for summarize
//   - Fetch: workbook download settings
//   - Logging: log format, level, and rotated file sink
//   - Metrics: Prometheus textfile export
//   - Notifications: ntfy run-completion notices
type Config struct {
	Paths    Paths    `toml:"paths"`
	Gemini   Gemini   `toml:"gemini"`
	Dispatch Dispatch `toml:"dispatch"`
	Fetch    Fetch    `toml:"fetch"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/papersum/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(DotEnvFiles); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(files []string) error {
	present := make([]string, 0, len(files))
	for _, file := range files {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			present = append(present, file)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("papersum.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SummaryDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireAPIKey reports a configuration error when no Gemini API key is set.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Gemini.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/papersum/config.toml"
	}
	return services.Configuration("gemini.api_key is required. Set %s (env or config/.env) or edit %s (create with 'papersum config init')", APIKeyEnv, defaultPath)
}

// LedgerPath is the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath is the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "papersum.lock")
}

// GeminiTimeout is the per-request HTTP timeout.
func (c *Config) GeminiTimeout() time.Duration {
	return seconds(c.Gemini.TimeoutSeconds)
}

// RetryBudget is the per-item retry window for summarize runs.
func (c *Config) RetryBudget() time.Duration {
	return seconds(c.Dispatch.RetryBudgetSeconds)
}

// Backoff is the fixed delay between summarize attempts.
func (c *Config) Backoff() time.Duration {
	return seconds(c.Dispatch.BackoffSeconds)
}

// RunTimeout is the optional whole-run deadline; zero means none.
func (c *Config) RunTimeout() time.Duration {
	return seconds(c.Dispatch.RunTimeoutSeconds)
}

// RetryKinds returns the parsed retryable error kinds.
func (c *Config) RetryKinds() []services.Kind {
	kinds, _ := parseKinds(c.Dispatch.RetryKinds)
	return kinds
}

// NotifyTimeout is the per-request ntfy timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return seconds(c.Notifications.RequestTimeoutSeconds)
}

// FetchTimeout is the per-download HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	return seconds(c.Fetch.TimeoutSeconds)
}

// FetchRetryBudget is the per-download retry window.
func (c *Config) FetchRetryBudget() time.Duration {
	return seconds(c.Fetch.RetryBudgetSeconds)
}

// FetchBackoff is the fixed delay between download attempts.
func (c *Config) FetchBackoff() time.Duration {
	return seconds(c.Fetch.BackoffSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func parseKinds(values []string) ([]services.Kind, error) {
	kinds := make([]services.Kind, 0, len(values))
	for _, value := range values {
		kind, err := services.ParseKind(value)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with the API key redacted.
func (c *Config) Encode() (string, error) {
	redacted := *c
	if redacted.Gemini.APIKey != "" {
		redacted.Gemini.APIKey = "********"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
