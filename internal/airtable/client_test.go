package airtable_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kgsa/internal/airtable"
)

func newClient(t *testing.T, handler http.HandlerFunc) *airtable.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := airtable.New("key", "appTest", server.URL, airtable.WithPageDelay(0))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := airtable.New("", "appX", "https://example.com"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := airtable.New("key", " ", "https://example.com"); err == nil {
		t.Fatal("expected error when base id missing")
	}
}

func TestListRecordsFollowsOffsets(t *testing.T) {
	var calls int
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/appTest/Students" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("filterByFormula"); got != "{Grad Class}='2025'" {
			t.Errorf("unexpected formula %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("offset") {
		case "":
			_, _ = w.Write([]byte(`{"records":[{"id":"rec1","createdTime":"2024-01-02T03:04:05.000Z","fields":{"ID":2501}}],"offset":"next"}`))
		case "next":
			_, _ = w.Write([]byte(`{"records":[{"id":"rec2","fields":{"ID":2502}}]}`))
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := client.ListRecords(context.Background(), "Students", airtable.ListOptions{Formula: "{Grad Class}='2025'"})
	if err != nil {
		t.Fatalf("ListRecords returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 page requests, got %d", calls)
	}
	if len(records) != 2 || records[0].ID != "rec1" || records[1].ID != "rec2" {
		t.Fatalf("unexpected records: %#v", records)
	}
}

func TestListRecordsEscapesTableName(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/appTest/Test%20Scores" {
			t.Errorf("unexpected escaped path %q", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"records":[]}`))
	})
	if _, err := client.ListRecords(context.Background(), "Test Scores", airtable.ListOptions{}); err != nil {
		t.Fatalf("ListRecords returned error: %v", err)
	}
}

func TestCreateAndUpdateSendTypecast(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields   map[string]any `json:"fields"`
			Typecast bool           `json:"typecast"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if !body.Typecast {
			t.Errorf("expected typecast in %s body", r.Method)
		}
		switch r.Method {
		case http.MethodPost:
			if r.URL.Path != "/appTest/Students" {
				t.Errorf("unexpected create path %q", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"id":"recNew","fields":{"Last name":"Smith"}}`))
		case http.MethodPatch:
			if r.URL.Path != "/appTest/Students/rec1" {
				t.Errorf("unexpected update path %q", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"id":"rec1","fields":{"Last name":"Smyth"}}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	created, err := client.CreateRecord(context.Background(), "Students", map[string]any{"Last name": "Smith"})
	if err != nil || created.ID != "recNew" {
		t.Fatalf("CreateRecord = %#v, %v", created, err)
	}
	updated, err := client.UpdateRecord(context.Background(), "Students", "rec1", map[string]any{"Last name": "Smyth"})
	if err != nil || updated.Fields["Last name"] != "Smyth" {
		t.Fatalf("UpdateRecord = %#v, %v", updated, err)
	}
}

func TestAPIErrorParsing(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{"object", http.StatusUnprocessableEntity, `{"error":{"type":"INVALID_VALUE_FOR_COLUMN","message":"bad KCPE"}}`, "INVALID_VALUE_FOR_COLUMN", "bad KCPE"},
		{"string", http.StatusNotFound, `{"error":"NOT_FOUND"}`, "NOT_FOUND", ""},
		{"plain", http.StatusBadGateway, `upstream down`, "", "upstream down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.ListRecords(context.Background(), "Students", airtable.ListOptions{})
			var apiErr *airtable.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Type != tc.wantType || apiErr.Message != tc.wantMsg {
				t.Fatalf("unexpected APIError %+v", apiErr)
			}
		})
	}
}

func TestSchemaChoices(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta/bases/appTest/tables" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(schemaFixture))
	})

	schema, err := client.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema returned error: %v", err)
	}
	table, ok := schema.Table("students")
	if !ok {
		t.Fatal("expected students table")
	}
	field, ok := table.Field("Grad Class")
	if !ok {
		t.Fatal("expected Grad Class field")
	}
	if got := field.Choices(); len(got) != 2 || got[0] != "2024" || got[1] != "2025" {
		t.Fatalf("unexpected choices %v", got)
	}
}

func TestListRecordsStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[],"offset":"again"}`))
	}))
	t.Cleanup(server.Close)

	client, err := airtable.New("key", "appTest", server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.ListRecords(ctx, "Students", airtable.ListOptions{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

const schemaFixture = `{"tables":[
 {"id":"tblS","name":"Students","primaryFieldId":"fld1","fields":[
  {"id":"fld1","name":"ID","type":"number","options":{"precision":0}},
  {"id":"fld2","name":"Zeraki ADM No","type":"number","options":{"precision":0}},
  {"id":"fld3","name":"First name","type":"singleLineText"},
  {"id":"fld4","name":"Last name","type":"singleLineText"},
  {"id":"fld5","name":"Grad Class","type":"singleSelect","options":{"choices":[{"id":"sel1","name":"2024"},{"id":"sel2","name":"2025"}]}},
  {"id":"fld6","name":"KCPE","type":"number","options":{"precision":0}},
  {"id":"fld7","name":"Full name","type":"formula"}
 ]},
 {"id":"tblT","name":"Test Scores","primaryFieldId":"fld8","fields":[
  {"id":"fld8","name":"Student","type":"multipleRecordLinks"},
  {"id":"fld9","name":"Date","type":"date"},
  {"id":"fld10","name":"Form","type":"singleSelect"},
  {"id":"fld11","name":"Type","type":"singleSelect"},
  {"id":"fld12","name":"Subject","type":"singleSelect"},
  {"id":"fld13","name":"Grade","type":"singleSelect"},
  {"id":"fld14","name":"Score","type":"number"}
 ]}
]}`
