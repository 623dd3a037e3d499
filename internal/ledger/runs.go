package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"papersum/internal/dispatch"
	"papersum/internal/services"
)

// ErrAmbiguousRun is returned when a run ID prefix matches more than one run.
var ErrAmbiguousRun = errors.New("ambiguous run id")

const runColumns = "id, command, started_at, finished_at, total, succeeded, failed"

// StartRun inserts a new run and returns it with a fresh UUID.
func (s *Store) StartRun(ctx context.Context, command string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Command:   command,
		StartedAt: s.now().UTC(),
	}
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO runs (id, command, started_at) VALUES (?, ?, ?)",
		run.ID, run.Command, formatTime(run.StartedAt),
	); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the finish time and totals on a run.
func (s *Store) FinishRun(ctx context.Context, id string, total, succeeded, failed int) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ? WHERE id = ?",
		formatTime(s.now().UTC()), total, succeeded, failed, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, services.ErrNotFound)
	}
	return nil
}

// Record appends one outcome to a run.
func (s *Store) Record(ctx context.Context, runID string, outcome dispatch.Outcome) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO outcomes (run_id, item_id, status, artifact, kind, message, attempts, elapsed_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		outcome.Item.ID,
		string(outcome.Status),
		nullableString(outcome.Artifact),
		nullableString(failureKind(outcome)),
		nullableString(outcome.Message),
		outcome.Attempts,
		outcome.Elapsed.Milliseconds(),
		formatTime(s.now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", outcome.Item.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun resolves a full run ID or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, fmt.Errorf("run id required: %w", services.ErrValidation)
	}
	prefix := escapeLike(idOrPrefix)
	if prefix == "" {
		return Run{}, fmt.Errorf("run %s: %w", idOrPrefix, services.ErrNotFound)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2",
		idOrPrefix, prefix+"%",
	)
	if err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("run %s: %w", idOrPrefix, services.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
}

// Outcomes returns the outcomes of a run in recording order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, item_id, status, artifact, kind, message, attempts, elapsed_ms, recorded_at
		 FROM outcomes WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var (
			rec       OutcomeRecord
			status    string
			artifact  sql.NullString
			kind      sql.NullString
			message   sql.NullString
			elapsedMS int64
			recorded  string
		)
		if err := rows.Scan(&rec.RunID, &rec.ItemID, &status, &artifact, &kind, &message, &rec.Attempts, &elapsedMS, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Status = dispatch.Status(status)
		rec.Artifact = artifact.String
		rec.Kind = services.Kind(kind.String)
		rec.Message = message.String
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		rec.RecordedAt, _ = parseTime(recorded)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunRecorder binds a run ID so the store can serve as a report.Recorder.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a recorder that appends outcomes to runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// Record appends the outcome to the bound run.
func (r *RunRecorder) Record(ctx context.Context, outcome dispatch.Outcome) error {
	return r.store.Record(ctx, r.runID, outcome)
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Command, &started, &finished, &run.Total, &run.Succeeded, &run.Failed); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, _ = parseTime(started)
	if finished.Valid {
		run.FinishedAt, _ = parseTime(finished.String)
	}
	return run, nil
}

func failureKind(outcome dispatch.Outcome) string {
	if outcome.Succeeded() {
		return ""
	}
	return string(outcome.Kind)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(timeLayout, value)
}

// escapeLike drops LIKE wildcards from user input; run IDs are UUIDs.
func escapeLike(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
