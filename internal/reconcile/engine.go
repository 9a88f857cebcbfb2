package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kgsa/internal/logging"
	"kgsa/internal/prompt"
)

// Summary accumulates per-run counters. Total counts rows (score records for
// grade imports) that were fully processed; a row interrupted by a cancel is
// not counted.
type Summary struct {
	Total      int
	Created    int
	Updated    int
	Unchanged  int
	Skipped    int
	Failed     int
	WithErrors int
	Cancelled  bool
}

// Option customises a reconciler.
type Option func(*engine)

// WithDryRun runs every step, prompts included, without writing to the store.
func WithDryRun(dryRun bool) Option {
	return func(e *engine) {
		e.dryRun = dryRun
	}
}

// WithRecorder journals every mutation attempt.
func WithRecorder(rec Recorder) Option {
	return func(e *engine) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type engine struct {
	store    Store
	prompter prompt.Prompter
	matcher  *NameMatcher
	recorder Recorder
	logger   *slog.Logger
	dryRun   bool
}

func newEngine(store Store, p prompt.Prompter, component string, opts []Option) engine {
	e := engine{
		store:    store,
		prompter: p,
		matcher:  NewNameMatcher(p),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&e)
		}
	}
	e.logger = logging.NewComponentLogger(e.logger, component)
	return e
}

// resolve runs the matcher chain for one row.
func (e *engine) resolve(ctx context.Context, row ImportRow, candidates []StoredRecord) (MatchOutcome, bool, error) {
	outcome := MatchByKey(row, candidates)
	if outcome.Kind != MatchNone {
		return outcome, false, nil
	}
	return e.matcher.Match(ctx, row, candidates)
}

// approve asks about each changed field and returns the accepted payload.
func (e *engine) approve(ctx context.Context, row ImportRow, target string, changed []FieldDiff) (Fields, bool, error) {
	logger := e.logger.With(logging.FieldRow, row.Ordinal)
	for _, diff := range changed {
		logger.Info("field differs",
			"target", target,
			"field", diff.Name,
			"kind", diff.Kind.String(),
			"stored", formatValue(diff.Stored),
			"proposed", formatValue(diff.Proposed),
		)
	}

	var payload Fields
	for _, diff := range changed {
		question := fmt.Sprintf("Row %d: %s: %s", row.Ordinal, target, describeDiff(diff))
		resp, err := e.prompter.Confirm(ctx, question)
		if err != nil {
			return nil, false, fmt.Errorf("approve %s: %w", diff.Name, err)
		}
		switch resp.Status {
		case prompt.Cancelled:
			return nil, true, nil
		case prompt.Selected:
			payload = append(payload, Field{Name: diff.Name, Value: diff.Proposed})
		default:
			logger.Info("field change rejected", "field", diff.Name)
		}
	}
	return payload, false, nil
}

// commit performs or rehearses one mutation and journals it.
func (e *engine) commit(ctx context.Context, m Mutation) Mutation {
	logger := e.logger.With(logging.FieldRow, m.Row)
	if e.dryRun {
		m.Status = StatusDryRun
		logger.Info("dry run: mutation suppressed", "action", string(m.Action), "target", m.Label, "fields", formatFields(m.Fields))
		e.record(ctx, m)
		return m
	}

	var (
		echoed Record
		err    error
	)
	switch m.Action {
	case ActionCreate:
		echoed, err = e.store.Create(ctx, m.Table, m.Fields)
	case ActionUpdate:
		echoed, err = e.store.Update(ctx, m.Table, m.Handle, m.Fields)
	default:
		err = fmt.Errorf("unknown action %q", m.Action)
	}
	if err != nil {
		m.Status = StatusFailed
		m.Error = err.Error()
		logger.Error("store mutation failed", "action", string(m.Action), "target", m.Label, "fields", strings.Join(m.Fields.Names(), ", "), logging.Error(err))
		e.record(ctx, m)
		return m
	}

	if echoed.Handle != "" {
		m.Handle = echoed.Handle
	}
	m.Status = StatusOK
	for _, diff := range Changed(Compare(m.Fields, echoed.Fields)) {
		m.Mismatched = append(m.Mismatched, diff.Name)
	}
	if len(m.Mismatched) > 0 {
		m.Status = StatusWithErrors
		logger.Warn("store did not persist all fields", "action", string(m.Action), "target", m.Label, "handle", m.Handle, "fields", strings.Join(m.Mismatched, ", "))
	} else {
		logger.Info("store mutation committed", "action", string(m.Action), "target", m.Label, "handle", m.Handle)
	}
	e.record(ctx, m)
	return m
}

func (e *engine) record(ctx context.Context, m Mutation) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordMutation(ctx, m); err != nil {
		e.logger.Warn("journal write failed", logging.FieldRow, m.Row, logging.Error(err))
	}
}

// tally folds a committed mutation into the summary.
func tally(summary *Summary, m Mutation) {
	switch m.Status {
	case StatusOK, StatusDryRun:
		if m.Action == ActionCreate {
			summary.Created++
		} else {
			summary.Updated++
		}
	case StatusWithErrors:
		summary.WithErrors++
	case StatusFailed:
		summary.Failed++
	}
}

func describeDiff(diff FieldDiff) string {
	if diff.Kind == DiffAdd {
		return fmt.Sprintf("set %s to %s?", diff.Name, formatValue(diff.Proposed))
	}
	return fmt.Sprintf("change %s from %s to %s?", diff.Name, formatValue(diff.Stored), formatValue(diff.Proposed))
}

func formatFields(fields Fields) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field.Name+"="+formatValue(field.Value))
	}
	return strings.Join(parts, ", ")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "(empty)"
	case string:
		return fmt.Sprintf("%q", v)
	case []string:
		return strings.Join(v, ",")
	default:
		return stringValue(v)
	}
}
