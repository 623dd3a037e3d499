// Package gemini provides a REST client for the Gemini Files and
// generateContent APIs used to summarize PDFs.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.UploadFile: resumable upload of a local PDF; waits for ACTIVE state.
// Client.Generate: one generateContent call with the uploaded file and a prompt.
// Client.HealthCheck: verify API key and model availability.
//
// # Errors
//
// Every failure is a *services.Error. HTTP 429, the RESOURCE_EXHAUSTED API
// status, and rate-limit wording in error bodies map to KindRateLimited; 5xx
// and transport failures map to KindTransient; 401/403 map to KindAuth.
//
// # Retry Behaviour
//
// None. The dispatcher's retrier decides whether and when to call again.
package gemini
