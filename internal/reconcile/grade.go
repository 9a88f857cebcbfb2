package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kgsa/internal/logging"
	"kgsa/internal/prompt"
)

// Exam identifies the sitting a grade export belongs to.
type Exam struct {
	Form string
	Type string
	Date string
}

// Validate checks the exam carries the fields score records are keyed on.
func (e Exam) Validate() error {
	if strings.TrimSpace(e.Form) == "" {
		return errors.New("exam form is required")
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("exam type is required")
	}
	if e.Date != "" {
		if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
			return fmt.Errorf("exam date %q is not YYYY-MM-DD", e.Date)
		}
	}
	return nil
}

func (e Exam) String() string {
	parts := []string{e.Form, e.Type}
	if e.Date != "" {
		parts = append(parts, e.Date)
	}
	return strings.Join(parts, " / ")
}

// GradeReconciler imports exam results into the test scores table. Students
// are resolved with the same matcher chain as roster imports but are never
// created here.
type GradeReconciler struct {
	engine
	studentsTable string
	scoresTable   string
}

// NewGradeReconciler constructs a reconciler reading students from
// studentsTable and writing to scoresTable.
func NewGradeReconciler(store Store, p prompt.Prompter, studentsTable, scoresTable string, opts ...Option) *GradeReconciler {
	return &GradeReconciler{
		engine:        newEngine(store, p, "grades", opts),
		studentsTable: studentsTable,
		scoresTable:   scoresTable,
	}
}

// Run reconciles the subject grades of every row. Existing score records are
// keyed on (student, form, type, subject); the exam date is not part of the
// key. Counters count score records.
func (r *GradeReconciler) Run(ctx context.Context, partition string, exam Exam, rows []ImportRow) (Summary, error) {
	var summary Summary
	partition = strings.TrimSpace(partition)
	if partition == "" {
		return summary, errors.New("partition is required")
	}
	if err := exam.Validate(); err != nil {
		return summary, err
	}

	studentRecords, err := r.store.List(ctx, r.studentsTable, Condition{Field: FieldGradClass, Value: partition})
	if err != nil {
		return summary, fmt.Errorf("list %s for %s: %w", r.studentsTable, partition, err)
	}
	students := make([]StoredRecord, 0, len(studentRecords))
	for _, rec := range studentRecords {
		students = append(students, StudentFromRecord(rec))
	}
	scores, err := r.store.List(ctx, r.scoresTable,
		Condition{Field: FieldForm, Value: exam.Form},
		Condition{Field: FieldType, Value: exam.Type},
	)
	if err != nil {
		return summary, fmt.Errorf("list %s for %s: %w", r.scoresTable, exam, err)
	}
	r.logger.Info("loaded candidates", "partition", partition, "exam", exam.String(), "students", len(students), "scores", len(scores), "rows", len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		var rowSummary Summary
		cancelled, err := r.reconcileRow(ctx, exam, row, students, scores, &rowSummary)
		summary.add(rowSummary)
		if err != nil {
			return summary, fmt.Errorf("row %d: %w", row.Ordinal, err)
		}
		if cancelled {
			summary.Cancelled = true
			r.logger.Warn("import cancelled by operator", logging.FieldRow, row.Ordinal)
			return summary, nil
		}
		summary.Total += len(row.Subjects)
	}
	return summary, nil
}

func (r *GradeReconciler) reconcileRow(ctx context.Context, exam Exam, row ImportRow, students []StoredRecord, scores []Record, summary *Summary) (bool, error) {
	logger := r.logger.With(logging.FieldRow, row.Ordinal, logging.FieldAdmNo, row.RawKey)
	if len(row.Subjects) == 0 {
		logger.Info("row has no grades")
		return false, nil
	}

	outcome, cancelled, err := r.resolve(ctx, row, students)
	if err != nil || cancelled {
		return cancelled, err
	}
	logger.Info("row classified", logging.FieldOutcome, outcome.String(), "name", row.DisplayName())
	if !outcome.Matched() {
		logger.Warn("no student for grades; skipping row", "grades", len(row.Subjects))
		summary.Skipped += len(row.Subjects)
		return false, nil
	}
	student := outcome.Record
	logger = logger.With(logging.FieldStudentID, student.ID)

	var pending []Fields
	for _, grade := range row.Subjects {
		proposed := scoreFields(student.Handle, exam, grade)
		existing := matchingScores(scores, student.Handle, grade.Subject)
		switch len(existing) {
		case 0:
			pending = append(pending, proposed)
		case 1:
			target := fmt.Sprintf("%s %s", student.Label(), grade.Subject)
			changed := Changed(Compare(proposed, existing[0].Fields))
			if len(changed) == 0 {
				summary.Unchanged++
				continue
			}
			payload, cancelled, err := r.approve(ctx, row, target, changed)
			if err != nil || cancelled {
				return cancelled, err
			}
			if len(payload) == 0 {
				summary.Unchanged++
				continue
			}
			tally(summary, r.commit(ctx, Mutation{
				Row:    row.Ordinal,
				Action: ActionUpdate,
				Table:  r.scoresTable,
				Handle: existing[0].Handle,
				Label:  target,
				Fields: payload,
			}))
		default:
			handles := make([]string, 0, len(existing))
			for _, rec := range existing {
				handles = append(handles, rec.Handle)
			}
			logger.Warn("ambiguous score records; skipping subject", "subject", grade.Subject, "handles", strings.Join(handles, ", "))
			summary.Skipped++
		}
	}
	if len(pending) == 0 {
		return false, nil
	}

	subjects := make([]string, 0, len(pending))
	for _, fields := range pending {
		subject, _ := fields.Get(FieldSubject)
		subjects = append(subjects, stringValue(subject))
	}
	question := fmt.Sprintf("Row %d: create %d score records for %s (%s): %s?",
		row.Ordinal, len(pending), student.Label(), exam, strings.Join(subjects, ", "))
	resp, err := r.prompter.Confirm(ctx, question)
	if err != nil {
		return false, fmt.Errorf("confirm create: %w", err)
	}
	switch resp.Status {
	case prompt.Cancelled:
		return true, nil
	case prompt.Declined:
		logger.Info("score creation declined", "grades", len(pending))
		summary.Skipped += len(pending)
		return false, nil
	}
	for i, fields := range pending {
		tally(summary, r.commit(ctx, Mutation{
			Row:    row.Ordinal,
			Action: ActionCreate,
			Table:  r.scoresTable,
			Label:  fmt.Sprintf("%s %s", student.Label(), subjects[i]),
			Fields: fields,
		}))
	}
	return false, nil
}

// scoreFields projects one subject grade onto the test scores table.
func scoreFields(studentHandle string, exam Exam, grade SubjectGrade) Fields {
	fields := Fields{{Name: FieldStudent, Value: []string{studentHandle}}}
	if exam.Date != "" {
		fields = append(fields, Field{Name: FieldDate, Value: exam.Date})
	}
	fields = append(fields,
		Field{Name: FieldForm, Value: exam.Form},
		Field{Name: FieldType, Value: exam.Type},
		Field{Name: FieldSubject, Value: grade.Subject},
	)
	if grade.Letter != "" {
		fields = append(fields, Field{Name: FieldGrade, Value: grade.Letter})
	}
	if grade.Marks != nil {
		fields = append(fields, Field{Name: FieldScore, Value: *grade.Marks})
	}
	return fields
}

func matchingScores(scores []Record, studentHandle, subject string) []Record {
	var out []Record
	for _, rec := range scores {
		if !linksTo(rec.Fields[FieldStudent], studentHandle) {
			continue
		}
		if !strings.EqualFold(stringValue(rec.Fields[FieldSubject]), subject) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func linksTo(value any, handle string) bool {
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			if item == handle {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == handle {
				return true
			}
		}
	case string:
		return v == handle
	}
	return false
}

func (s *Summary) add(other Summary) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Unchanged += other.Unchanged
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.WithErrors += other.WithErrors
}
