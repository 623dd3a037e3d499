// Package preflight provides readiness checks for the filesystem paths and
// the Gemini API that papersum depends on.
//
// The doctor command runs RunAll and renders the results; summarize relies on
// the same prompt and API key checks failing fast through config and
// summarize.LoadPrompt before any item is scheduled.
package preflight
