package config

import (
	"errors"
	"fmt"
	"sort"

	"papersum/internal/services"
)

// Validate ensures the configuration is usable. The Gemini API key is checked
// separately by RequireAPIKey because only summarize and doctor need it.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" && c.Notifications.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateGemini() error {
	if err := ensurePositiveMap(map[string]int{
		"gemini.max_output_tokens": c.Gemini.MaxOutputTokens,
		"gemini.timeout_seconds":   c.Gemini.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return errors.New("gemini.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.MaxConcurrency <= 0 {
		return errors.New("dispatch.max_concurrency must be positive")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"dispatch.retry_budget_seconds": c.Dispatch.RetryBudgetSeconds,
		"dispatch.backoff_seconds":      c.Dispatch.BackoffSeconds,
		"dispatch.run_timeout_seconds":  c.Dispatch.RunTimeoutSeconds,
	}); err != nil {
		return err
	}
	kinds, err := parseKinds(c.Dispatch.RetryKinds)
	if err != nil {
		return fmt.Errorf("dispatch.retry_kinds: %w", err)
	}
	for _, kind := range kinds {
		switch kind {
		case services.KindCanceled, services.KindInternal:
			return fmt.Errorf("dispatch.retry_kinds: %q cannot be retried", kind)
		}
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.max_concurrency": c.Fetch.MaxConcurrency,
		"fetch.timeout_seconds": c.Fetch.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return ensureNonNegativeMap(map[string]int{
		"fetch.retry_budget_seconds": c.Fetch.RetryBudgetSeconds,
		"fetch.backoff_seconds":      c.Fetch.BackoffSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}

func sortedKeys(values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
