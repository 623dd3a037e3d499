// Package ledger records every dispatch run and its per-item outcomes in a
// SQLite database under the state directory.
//
// A run row is created before dispatch starts and finalized with totals once
// the reporter has drained the outcome channel. Outcome rows are appended as
// they arrive through RunRecorder, which satisfies report.Recorder. The
// history command reads both tables back.
package ledger
