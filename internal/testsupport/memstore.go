package testsupport

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"kgsa/internal/reconcile"
)

// StoreCall records one mutation received by a MemoryStore.
type StoreCall struct {
	Action reconcile.Action
	Table  string
	Handle string
	Fields reconcile.Fields
}

// MemoryStore is an in-memory reconcile.Store.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]reconcile.Record
	calls  []StoreCall
	lists  int
	serial int

	// FailOn makes Create/Update return an error when it returns non-nil.
	FailOn func(call StoreCall) error
	// DropFields is omitted from echoed records to simulate fields the
	// store did not persist.
	DropFields []string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]reconcile.Record)}
}

// Seed inserts records directly and returns their handles.
func (s *MemoryStore) Seed(table string, records ...map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]string, 0, len(records))
	for _, fields := range records {
		handle := s.nextHandleLocked()
		s.tables[table] = append(s.tables[table], reconcile.Record{
			Handle:      handle,
			Fields:      maps.Clone(fields),
			CreatedTime: time.Unix(0, 0).UTC(),
		})
		handles = append(handles, handle)
	}
	return handles
}

// List returns records matching every condition, compared as text.
func (s *MemoryStore) List(_ context.Context, table string, where ...reconcile.Condition) ([]reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists++
	var out []reconcile.Record
	for _, rec := range s.tables[table] {
		if matchesAll(rec, where) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// Create appends a record.
func (s *MemoryStore) Create(_ context.Context, table string, fields reconcile.Fields) (reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := StoreCall{Action: reconcile.ActionCreate, Table: table, Fields: fields}
	s.calls = append(s.calls, call)
	if s.FailOn != nil {
		if err := s.FailOn(call); err != nil {
			return reconcile.Record{}, err
		}
	}
	rec := reconcile.Record{Handle: s.nextHandleLocked(), Fields: fields.Map(), CreatedTime: time.Now().UTC()}
	s.tables[table] = append(s.tables[table], rec)
	return s.echo(rec), nil
}

// Update merges fields into an existing record.
func (s *MemoryStore) Update(_ context.Context, table, handle string, fields reconcile.Fields) (reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := StoreCall{Action: reconcile.ActionUpdate, Table: table, Handle: handle, Fields: fields}
	s.calls = append(s.calls, call)
	if s.FailOn != nil {
		if err := s.FailOn(call); err != nil {
			return reconcile.Record{}, err
		}
	}
	records := s.tables[table]
	for i := range records {
		if records[i].Handle != handle {
			continue
		}
		if records[i].Fields == nil {
			records[i].Fields = map[string]any{}
		}
		for _, field := range fields {
			records[i].Fields[field.Name] = field.Value
		}
		return s.echo(records[i]), nil
	}
	return reconcile.Record{}, fmt.Errorf("record %s not found in %s", handle, table)
}

// Calls returns every mutation received so far.
func (s *MemoryStore) Calls() []StoreCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoreCall(nil), s.calls...)
}

// ListCount reports how many times List was called.
func (s *MemoryStore) ListCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

// Records returns a copy of the table contents.
func (s *MemoryStore) Records(table string) []reconcile.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reconcile.Record, 0, len(s.tables[table]))
	for _, rec := range s.tables[table] {
		out = append(out, cloneRecord(rec))
	}
	return out
}

func (s *MemoryStore) nextHandleLocked() string {
	s.serial++
	return fmt.Sprintf("rec%03d", s.serial)
}

func (s *MemoryStore) echo(rec reconcile.Record) reconcile.Record {
	out := cloneRecord(rec)
	for _, name := range s.DropFields {
		delete(out.Fields, name)
	}
	return out
}

func cloneRecord(rec reconcile.Record) reconcile.Record {
	rec.Fields = maps.Clone(rec.Fields)
	return rec
}

func matchesAll(rec reconcile.Record, where []reconcile.Condition) bool {
	for _, cond := range where {
		value, ok := rec.Fields[cond.Field]
		if !ok || !strings.EqualFold(strings.TrimSpace(fmt.Sprint(value)), cond.Value) {
			return false
		}
	}
	return true
}
