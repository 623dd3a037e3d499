// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs, run IDs, stage names, and
//     correlation identifiers for logging.
//   - The closed Kind enumeration and the classified Error type every
//     processor boundary returns. HTTP status codes, Google API status
//     strings, and free-form messages are translated into a Kind exactly
//     once, at the boundary, so retry policy only branches on Kind.
//   - Sentinel markers (ErrConfiguration and friends) plus the Wrap helper
//     for fatal setup failures that abort a run before scheduling.
//
// Subpackages hold the external service clients.
package services
