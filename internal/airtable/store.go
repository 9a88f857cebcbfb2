package airtable

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"kgsa/internal/logging"
	"kgsa/internal/reconcile"
)

type recordAPI interface {
	ListRecords(ctx context.Context, table string, opts ListOptions) ([]APIRecord, error)
	CreateRecord(ctx context.Context, table string, fields map[string]any) (APIRecord, error)
	UpdateRecord(ctx context.Context, table, id string, fields map[string]any) (APIRecord, error)
	Schema(ctx context.Context) (*Schema, error)
}

// Store adapts a Client to reconcile.Store.
type Store struct {
	api    recordAPI
	logger *slog.Logger

	mu         sync.Mutex
	schema     *Schema
	schemaErr  error
	schemaDone bool
}

var _ reconcile.Store = (*Store)(nil)

// NewStore wraps client. A nil logger discards output.
func NewStore(client *Client, logger *slog.Logger) *Store {
	return newStore(client, logger)
}

func newStore(api recordAPI, logger *slog.Logger) *Store {
	return &Store{api: api, logger: logging.NewComponentLogger(logger, "airtable")}
}

// List returns the records of table matching every condition.
func (s *Store) List(ctx context.Context, table string, where ...reconcile.Condition) ([]reconcile.Record, error) {
	records, err := s.api.ListRecords(ctx, table, ListOptions{Formula: Formula(where...)})
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecord(rec))
	}
	return out, nil
}

// Create inserts a record after coercing fields to the column types.
func (s *Store) Create(ctx context.Context, table string, fields reconcile.Fields) (reconcile.Record, error) {
	payload, err := s.encode(ctx, table, fields)
	if err != nil {
		return reconcile.Record{}, err
	}
	created, err := s.api.CreateRecord(ctx, table, payload)
	if err != nil {
		return reconcile.Record{}, err
	}
	return toRecord(created), nil
}

// Update patches a record after coercing fields to the column types.
func (s *Store) Update(ctx context.Context, table, handle string, fields reconcile.Fields) (reconcile.Record, error) {
	payload, err := s.encode(ctx, table, fields)
	if err != nil {
		return reconcile.Record{}, err
	}
	updated, err := s.api.UpdateRecord(ctx, table, handle, payload)
	if err != nil {
		return reconcile.Record{}, err
	}
	return toRecord(updated), nil
}

// Choices returns the allowed values of a select column.
func (s *Store) Choices(ctx context.Context, table, field string) ([]string, error) {
	schema, err := s.loadSchema(ctx)
	if err != nil {
		return nil, err
	}
	meta, ok := schema.Table(table)
	if !ok {
		return nil, fmt.Errorf("table %q not found in base", table)
	}
	column, ok := meta.Field(field)
	if !ok {
		return nil, fmt.Errorf("field %q not found in table %q", field, table)
	}
	choices := column.Choices()
	if len(choices) == 0 {
		return nil, fmt.Errorf("field %q of table %q has no options", field, table)
	}
	return choices, nil
}

func (s *Store) loadSchema(ctx context.Context) (*Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.schemaDone {
		s.schema, s.schemaErr = s.api.Schema(ctx)
		s.schemaDone = true
	}
	return s.schema, s.schemaErr
}

func (s *Store) encode(ctx context.Context, table string, fields reconcile.Fields) (map[string]any, error) {
	payload := make(map[string]any, len(fields))
	schema, err := s.loadSchema(ctx)
	if err != nil {
		s.logger.Warn("schema unavailable; sending values uncoerced", logging.Error(err))
		for _, f := range fields {
			payload[f.Name] = plainValue(f.Value)
		}
		return payload, nil
	}
	meta, ok := schema.Table(table)
	if !ok {
		return nil, fmt.Errorf("table %q not found in base", table)
	}
	for _, f := range fields {
		column, known := meta.Field(f.Name)
		if !known {
			return nil, fmt.Errorf("field %q not found in table %q", f.Name, table)
		}
		if column.ReadOnly() {
			s.logger.Warn("skipping computed field", "table", table, "field", f.Name, "type", column.Type)
			continue
		}
		value, err := coerce(f.Value, column.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		payload[f.Name] = value
	}
	return payload, nil
}

func coerce(value any, fieldType string) (any, error) {
	value = plainValue(value)
	if value == nil {
		return nil, nil
	}
	switch fieldType {
	case TypeNumber, TypeCurrency, TypePercent, TypeRating, TypeDuration:
		return toFloat(value)
	case TypeSingleLine, TypeMultiLine, TypeSingleSel, TypeDate:
		return toText(value), nil
	case TypeRecordLinks:
		return toLinks(value)
	default:
		return value, nil
	}
}

func plainValue(value any) any {
	switch v := value.(type) {
	case *float64:
		if v == nil {
			return nil
		}
		return *v
	case *int:
		if v == nil {
			return nil
		}
		return *v
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return value
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot use %T as a number", value)
	}
}

func toText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toLinks(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		links := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("link element %v is not a record id", item)
			}
			links = append(links, s)
		}
		return links, nil
	default:
		return nil, fmt.Errorf("cannot use %T as record links", value)
	}
}

func toRecord(rec APIRecord) reconcile.Record {
	out := reconcile.Record{Handle: rec.ID, Fields: rec.Fields}
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	if rec.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, rec.CreatedTime); err == nil {
			out.CreatedTime = t
		}
	}
	return out
}
