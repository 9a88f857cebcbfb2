package reconcile

import "context"

// Condition restricts List to records whose field equals Value.
type Condition struct {
	Field string
	Value string
}

// Store is the remote tabular database. Implementations coerce weakly typed
// field values to the column types they own.
type Store interface {
	List(ctx context.Context, table string, where ...Condition) ([]Record, error)
	Create(ctx context.Context, table string, fields Fields) (Record, error)
	Update(ctx context.Context, table, handle string, fields Fields) (Record, error)
}

// Action names a store mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// MutationStatus is the outcome of one create or update.
type MutationStatus string

const (
	StatusOK         MutationStatus = "ok"
	StatusWithErrors MutationStatus = "with_errors"
	StatusFailed     MutationStatus = "failed"
	StatusDryRun     MutationStatus = "dry_run"
)

// Mutation describes one attempted write.
type Mutation struct {
	Row    int
	Action Action
	Table  string
	Handle string
	Label  string
	Fields Fields
	Status MutationStatus
	// Mismatched lists fields the store did not persist as requested.
	Mismatched []string
	Error      string
}

// Recorder receives every mutation attempt, including dry runs.
type Recorder interface {
	RecordMutation(ctx context.Context, m Mutation) error
}
