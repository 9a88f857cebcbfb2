package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kgsa/internal/reconcile"
)

// RunStatus describes where a run ended up.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// RunSpec identifies what an import run is about to do.
type RunSpec struct {
	Kind       string
	SourceFile string
	Partition  string
	Exam       string
	DryRun     bool
}

// Run is one persisted import run.
type Run struct {
	ID         string
	Kind       string
	SourceFile string
	Partition  string
	Exam       string
	DryRun     bool
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    reconcile.Summary
	Error      string
}

// MutationEntry is a journaled mutation attempt.
type MutationEntry struct {
	ID         int64
	RunID      string
	Mutation   reconcile.Mutation
	RecordedAt time.Time
}

type fieldJSON struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BeginRun inserts a running row and returns it.
func (j *Journal) BeginRun(ctx context.Context, spec RunSpec) (*Run, error) {
	if strings.TrimSpace(spec.Kind) == "" {
		return nil, errors.New("run kind is required")
	}
	run := &Run{
		ID:         uuid.NewString(),
		Kind:       spec.Kind,
		SourceFile: spec.SourceFile,
		Partition:  spec.Partition,
		Exam:       spec.Exam,
		DryRun:     spec.DryRun,
		Status:     RunRunning,
		StartedAt:  time.Now().UTC(),
	}
	err := j.exec(ctx, `INSERT INTO runs (id, kind, source_file, partition, exam, dry_run, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, nullableString(run.SourceFile), run.Partition, nullableString(run.Exam),
		boolToInt(run.DryRun), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final counters. A non-nil runErr marks the run failed;
// a cancelled summary marks it cancelled.
func (j *Journal) FinishRun(ctx context.Context, id string, summary reconcile.Summary, runErr error) error {
	status := RunCompleted
	var message string
	switch {
	case runErr != nil:
		status = RunFailed
		message = runErr.Error()
	case summary.Cancelled:
		status = RunCancelled
	}
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := j.db.ExecContext(ctx, `UPDATE runs SET status = ?, finished_at = ?,
            total = ?, created = ?, updated = ?, unchanged = ?, skipped = ?, failed = ?, with_errors = ?,
            error_message = ?
            WHERE id = ?`,
			string(status), formatTime(time.Now()),
			summary.Total, summary.Created, summary.Updated, summary.Unchanged, summary.Skipped,
			summary.Failed, summary.WithErrors, nullableString(message), id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, kind, source_file, partition, exam, dry_run, status, started_at, finished_at,
    total, created, updated, unchanged, skipped, failed, with_errors, error_message`

var likePrefix = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetRun fetches a run by identifier, accepting a unique prefix.
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT "+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		id, likePrefix.Replace(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, ErrRunNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous", id)
	}
}

// ListRuns returns the most recent runs first. A limit of zero returns all.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Recorder returns a reconcile.Recorder that journals mutations under runID.
func (j *Journal) Recorder(runID string) reconcile.Recorder {
	return &runRecorder{journal: j, runID: runID}
}

type runRecorder struct {
	journal *Journal
	runID   string
}

func (r *runRecorder) RecordMutation(ctx context.Context, m reconcile.Mutation) error {
	return r.journal.RecordMutation(ctx, r.runID, m)
}

// RecordMutation appends one mutation to a run.
func (j *Journal) RecordMutation(ctx context.Context, runID string, m reconcile.Mutation) error {
	payload := make([]fieldJSON, 0, len(m.Fields))
	for _, f := range m.Fields {
		payload = append(payload, fieldJSON{Name: f.Name, Value: f.Value})
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	err = j.exec(ctx, `INSERT INTO mutations (run_id, row_ordinal, action, table_name, record_handle, label,
        fields_json, status, mismatched, error_message, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, m.Row, string(m.Action), m.Table, nullableString(m.Handle), nullableString(m.Label),
		string(encoded), string(m.Status), nullableString(strings.Join(m.Mismatched, ",")),
		nullableString(m.Error), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert mutation: %w", err)
	}
	return nil
}

// RunMutations lists the mutations of a run in the order they were recorded.
func (j *Journal) RunMutations(ctx context.Context, runID string) ([]MutationEntry, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, run_id, row_ordinal, action, table_name, record_handle, label,
        fields_json, status, mismatched, error_message, recorded_at
        FROM mutations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	var entries []MutationEntry
	for rows.Next() {
		var (
			entry                            MutationEntry
			action, status, fieldsJSON, when string
			handle, label, mismatched, msg   sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Mutation.Row, &action, &entry.Mutation.Table,
			&handle, &label, &fieldsJSON, &status, &mismatched, &msg, &when); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		entry.Mutation.Action = reconcile.Action(action)
		entry.Mutation.Status = reconcile.MutationStatus(status)
		entry.Mutation.Handle = handle.String
		entry.Mutation.Label = label.String
		entry.Mutation.Error = msg.String
		if mismatched.Valid && mismatched.String != "" {
			entry.Mutation.Mismatched = strings.Split(mismatched.String, ",")
		}
		var fields []fieldJSON
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("decode mutation %d fields: %w", entry.ID, err)
		}
		for _, f := range fields {
			entry.Mutation.Fields = append(entry.Mutation.Fields, reconcile.Field{Name: f.Name, Value: f.Value})
		}
		if t, err := parseTimeString(when); err == nil {
			entry.RecordedAt = t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run                         Run
		status, started             string
		source, exam, finished, msg sql.NullString
		dryRun                      int
	)
	if err := scanner.Scan(&run.ID, &run.Kind, &source, &run.Partition, &exam, &dryRun, &status,
		&started, &finished, &run.Summary.Total, &run.Summary.Created, &run.Summary.Updated,
		&run.Summary.Unchanged, &run.Summary.Skipped, &run.Summary.Failed, &run.Summary.WithErrors,
		&msg); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.SourceFile = source.String
	run.Exam = exam.String
	run.DryRun = dryRun != 0
	run.Status = RunStatus(status)
	run.Summary.Cancelled = run.Status == RunCancelled
	run.Error = msg.String
	if t, err := parseTimeString(started); err == nil {
		run.StartedAt = t
	}
	if finished.Valid {
		if t, err := parseTimeString(finished.String); err == nil {
			run.FinishedAt = t
		}
	}
	return &run, nil
}
