package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kgsa/internal/logging"
	"kgsa/internal/prompt"
)

// StudentReconciler imports a roster export into the students table of one
// graduation-class partition.
type StudentReconciler struct {
	engine
	table string
}

// NewStudentReconciler constructs a reconciler writing to table.
func NewStudentReconciler(store Store, p prompt.Prompter, table string, opts ...Option) *StudentReconciler {
	return &StudentReconciler{
		engine: newEngine(store, p, "students", opts),
		table:  table,
	}
}

// Run reconciles rows against the partition's students. The candidate set is
// fetched once; records created during the run are not matched against later
// rows. A cancel returns the counters so far with a nil error.
func (r *StudentReconciler) Run(ctx context.Context, partition string, rows []ImportRow) (Summary, error) {
	var summary Summary
	partition = strings.TrimSpace(partition)
	if partition == "" {
		return summary, errors.New("partition is required")
	}

	records, err := r.store.List(ctx, r.table, Condition{Field: FieldGradClass, Value: partition})
	if err != nil {
		return summary, fmt.Errorf("list %s for %s: %w", r.table, partition, err)
	}
	candidates := make([]StoredRecord, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, StudentFromRecord(rec))
	}
	r.logger.Info("loaded candidates", "partition", partition, "count", len(candidates), "rows", len(rows))

	ids := &idSequence{partition: partition, existing: candidates}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		cancelled, err := r.reconcileRow(ctx, partition, row, candidates, ids, &summary)
		if err != nil {
			return summary, fmt.Errorf("row %d: %w", row.Ordinal, err)
		}
		if cancelled {
			summary.Cancelled = true
			r.logger.Warn("import cancelled by operator", logging.FieldRow, row.Ordinal)
			return summary, nil
		}
		summary.Total++
	}
	return summary, nil
}

func (r *StudentReconciler) reconcileRow(ctx context.Context, partition string, row ImportRow, candidates []StoredRecord, ids *idSequence, summary *Summary) (bool, error) {
	logger := r.logger.With(logging.FieldRow, row.Ordinal, logging.FieldAdmNo, row.RawKey)
	if _, ok := row.Key(); !ok {
		logger.Warn("admission number missing or not numeric; matching by name only", "raw", row.RawKey)
	}

	outcome, cancelled, err := r.resolve(ctx, row, candidates)
	if err != nil || cancelled {
		return cancelled, err
	}
	if outcome.Matched() {
		logger = logger.With(logging.FieldStudentID, outcome.Record.ID)
	}
	logger.Info("row classified", logging.FieldOutcome, outcome.String(), "name", row.DisplayName())

	switch outcome.Kind {
	case MatchExact:
		summary.Unchanged++
		return false, nil
	case MatchNone:
		return r.create(ctx, partition, row, ids, summary)
	default:
		return r.update(ctx, partition, row, outcome, summary)
	}
}

func (r *StudentReconciler) update(ctx context.Context, partition string, row ImportRow, outcome MatchOutcome, summary *Summary) (bool, error) {
	target := outcome.Record.Label()
	changed := Changed(Compare(studentFields(row, partition, 0, false), outcome.Record.Fields))
	if len(changed) == 0 {
		r.logger.Info("no field changes", logging.FieldRow, row.Ordinal, "target", target)
		summary.Unchanged++
		return false, nil
	}

	payload, cancelled, err := r.approve(ctx, row, target, changed)
	if err != nil || cancelled {
		return cancelled, err
	}
	if len(payload) == 0 {
		summary.Unchanged++
		return false, nil
	}

	m := r.commit(ctx, Mutation{
		Row:    row.Ordinal,
		Action: ActionUpdate,
		Table:  r.table,
		Handle: outcome.Record.Handle,
		Label:  target,
		Fields: payload,
	})
	tally(summary, m)
	return false, nil
}

func (r *StudentReconciler) create(ctx context.Context, partition string, row ImportRow, ids *idSequence, summary *Summary) (bool, error) {
	id, err := ids.peek()
	if err != nil {
		return false, err
	}
	fields := studentFields(row, partition, id, true)
	question := fmt.Sprintf("Row %d: no match for %s (ADM %s). Create student %s?",
		row.Ordinal, row.DisplayName(), displayKey(row.RawKey), formatFields(fields))
	resp, err := r.prompter.Confirm(ctx, question)
	if err != nil {
		return false, fmt.Errorf("confirm create: %w", err)
	}
	switch resp.Status {
	case prompt.Cancelled:
		return true, nil
	case prompt.Declined:
		r.logger.Info("create declined", logging.FieldRow, row.Ordinal, "name", row.DisplayName())
		summary.Skipped++
		return false, nil
	}

	m := r.commit(ctx, Mutation{
		Row:    row.Ordinal,
		Action: ActionCreate,
		Table:  r.table,
		Label:  fmt.Sprintf("%s (ID %d)", row.DisplayName(), id),
		Fields: fields,
	})
	if m.Status != StatusFailed {
		ids.advance()
	}
	tally(summary, m)
	return false, nil
}

// studentFields projects a row onto the students table in display order.
// Updates never carry an ID or a placeholder name.
func studentFields(row ImportRow, partition string, id int, forCreate bool) Fields {
	fields := make(Fields, 0, 6)
	if forCreate {
		fields = append(fields, Field{Name: FieldID, Value: id})
	}
	if key, ok := row.Key(); ok {
		fields = append(fields, Field{Name: FieldAdmNo, Value: key})
	}
	if forCreate || !row.PlaceholderName {
		if row.FirstName != "" {
			fields = append(fields, Field{Name: FieldFirstName, Value: row.FirstName})
		}
		if row.LastName != "" {
			fields = append(fields, Field{Name: FieldLastName, Value: row.LastName})
		}
	}
	fields = append(fields, Field{Name: FieldGradClass, Value: partition})
	if row.KCPE != nil {
		fields = append(fields, Field{Name: FieldKCPE, Value: *row.KCPE})
	}
	return fields
}

// idSequence allocates IDs once per run and advances by one per create.
type idSequence struct {
	partition string
	existing  []StoredRecord
	next      int
	ready     bool
}

func (s *idSequence) peek() (int, error) {
	if !s.ready {
		next, err := NextID(s.partition, s.existing)
		if err != nil {
			return 0, err
		}
		s.next = next
		s.ready = true
	}
	return s.next, nil
}

func (s *idSequence) advance() {
	s.next++
}
