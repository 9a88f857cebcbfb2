package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kgsa/internal/logging"
	"kgsa/internal/reconcile"
)

type fakeAPI struct {
	schema    *Schema
	schemaErr error
	schemaHit int
	records   map[string][]APIRecord
	listed    []ListOptions
	written   []map[string]any
}

func (f *fakeAPI) ListRecords(_ context.Context, table string, opts ListOptions) ([]APIRecord, error) {
	f.listed = append(f.listed, opts)
	return f.records[table], nil
}

func (f *fakeAPI) CreateRecord(_ context.Context, _ string, fields map[string]any) (APIRecord, error) {
	f.written = append(f.written, fields)
	return APIRecord{ID: "recNew", CreatedTime: "2024-05-06T07:08:09.000Z", Fields: fields}, nil
}

func (f *fakeAPI) UpdateRecord(_ context.Context, _ string, id string, fields map[string]any) (APIRecord, error) {
	f.written = append(f.written, fields)
	return APIRecord{ID: id, Fields: fields}, nil
}

func (f *fakeAPI) Schema(context.Context) (*Schema, error) {
	f.schemaHit++
	return f.schema, f.schemaErr
}

func (f *fakeAPI) SchemaJSON(context.Context) (json.RawMessage, error) {
	return json.Marshal(f.schema)
}

func testSchema() *Schema {
	return &Schema{Tables: []Table{
		{Name: "Students", Fields: []FieldSchema{
			{Name: "ID", Type: TypeNumber},
			{Name: "Zeraki ADM No", Type: TypeNumber},
			{Name: "Last name", Type: TypeSingleLine},
			{Name: "Grad Class", Type: TypeSingleSel, Options: json.RawMessage(`{"choices":[{"name":"2024"},{"name":"2025"}]}`)},
			{Name: "KCPE", Type: TypeNumber},
			{Name: "Full name", Type: "formula"},
		}},
		{Name: "Test Scores", Fields: []FieldSchema{
			{Name: "Student", Type: TypeRecordLinks},
			{Name: "Score", Type: TypeNumber},
		}},
	}}
}

func TestStoreCoercesToColumnTypes(t *testing.T) {
	api := &fakeAPI{schema: testSchema()}
	store := newStore(api, logging.NewNop())

	kcpe := 380.0
	rec, err := store.Create(context.Background(), "Students", reconcile.Fields{
		{Name: "ID", Value: 2501},
		{Name: "Zeraki ADM No", Value: "501"},
		{Name: "Last name", Value: "Smith"},
		{Name: "Grad Class", Value: 2025},
		{Name: "KCPE", Value: &kcpe},
		{Name: "Full name", Value: "ignored"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.Handle != "recNew" || rec.CreatedTime.IsZero() {
		t.Fatalf("unexpected record %+v", rec)
	}
	sent := api.written[0]
	if sent["ID"] != 2501.0 || sent["Zeraki ADM No"] != 501.0 || sent["KCPE"] != 380.0 {
		t.Fatalf("numbers not coerced: %#v", sent)
	}
	if sent["Grad Class"] != "2025" {
		t.Fatalf("select not coerced to text: %#v", sent["Grad Class"])
	}
	if _, ok := sent["Full name"]; ok {
		t.Fatal("computed field should not be sent")
	}
}

func TestStoreRejectsBadValues(t *testing.T) {
	store := newStore(&fakeAPI{schema: testSchema()}, nil)
	tests := []struct {
		name   string
		table  string
		fields reconcile.Fields
	}{
		{"unknown field", "Students", reconcile.Fields{{Name: "Nickname", Value: "JJ"}}},
		{"non numeric", "Students", reconcile.Fields{{Name: "KCPE", Value: "abc"}}},
		{"bad link", "Test Scores", reconcile.Fields{{Name: "Student", Value: 12}}},
		{"unknown table", "Teachers", reconcile.Fields{{Name: "ID", Value: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.Update(context.Background(), tc.table, "rec1", tc.fields); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStoreSendsUncoercedWithoutSchema(t *testing.T) {
	api := &fakeAPI{schemaErr: errors.New("forbidden")}
	store := newStore(api, nil)

	for range 2 {
		if _, err := store.Update(context.Background(), "Test Scores", "rec1", reconcile.Fields{{Name: "Score", Value: 71.0}}); err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
	}
	if api.schemaHit != 1 {
		t.Fatalf("expected schema fetched once, got %d", api.schemaHit)
	}
	if api.written[0]["Score"] != 71.0 {
		t.Fatalf("unexpected payload %#v", api.written[0])
	}
}

func TestStoreListBuildsFormula(t *testing.T) {
	api := &fakeAPI{records: map[string][]APIRecord{
		"Test Scores": {{ID: "rec9", Fields: map[string]any{"Subject": "ENG"}}},
	}}
	store := newStore(api, nil)

	records, err := store.List(context.Background(), "Test Scores",
		reconcile.Condition{Field: "Form", Value: "Form 4"},
		reconcile.Condition{Field: "Type", Value: "Mock's"},
	)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(records) != 1 || records[0].Handle != "rec9" {
		t.Fatalf("unexpected records %+v", records)
	}
	if got, want := api.listed[0].Formula, `AND({Form}='Form 4',{Type}='Mock\'s')`; got != want {
		t.Fatalf("formula = %s, want %s", got, want)
	}
}

func TestStoreChoices(t *testing.T) {
	store := newStore(&fakeAPI{schema: testSchema()}, nil)
	choices, err := store.Choices(context.Background(), "Students", "Grad Class")
	if err != nil {
		t.Fatalf("Choices returned error: %v", err)
	}
	if len(choices) != 2 || choices[1] != "2025" {
		t.Fatalf("unexpected choices %v", choices)
	}
	if _, err := store.Choices(context.Background(), "Students", "KCPE"); err == nil {
		t.Fatal("expected error for field without options")
	}
}

func TestFormula(t *testing.T) {
	tests := []struct {
		where []reconcile.Condition
		want  string
	}{
		{nil, ""},
		{[]reconcile.Condition{{Field: "Grad Class", Value: "2025"}}, "{Grad Class}='2025'"},
		{[]reconcile.Condition{{Field: "a}b", Value: `x\y`}}, `{a\}b}='x\\y'`},
	}
	for _, tc := range tests {
		if got := Formula(tc.where...); got != tc.want {
			t.Fatalf("Formula(%v) = %q, want %q", tc.where, got, tc.want)
		}
	}
}

func TestExportWritesSchemaAndTables(t *testing.T) {
	api := &fakeAPI{
		schema: &Schema{Tables: []Table{{Name: "Students"}, {Name: "Scores/2024"}}},
		records: map[string][]APIRecord{
			"Students": {{ID: "rec1", CreatedTime: "2024-01-01T00:00:00.000Z", Fields: map[string]any{"ID": 2501.0}}},
		},
	}
	dir := filepath.Join(t.TempDir(), "export")

	result, err := export(context.Background(), api, dir, logging.NewNop())
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "_schema.json")); err != nil {
		t.Fatalf("schema file missing: %v", err)
	}
	if len(result.Tables) != 2 || result.Tables[1].Path != filepath.Join(dir, "Scores-2024.json") {
		t.Fatalf("unexpected result %+v", result)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Students.json"))
	if err != nil {
		t.Fatalf("read table export: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("decode table export: %v", err)
	}
	if len(rows) != 1 || rows[0]["airtable_id"] != "rec1" || rows[0]["ID"] != 2501.0 || rows[0]["airtable_createdTime"] != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
