package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"kgsa/internal/airtable"
	"kgsa/internal/config"
	"kgsa/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	base       *fakeBase
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := newFakeBase()
	server := httptest.NewServer(base)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(server.URL))
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("AIRTABLE_API_KEY", "")
	if err := os.MkdirAll(cfg.Import.Dir, 0o755); err != nil {
		t.Fatalf("mkdir import dir: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "kgsa.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, base: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[airtable]
api_key = %q
base_id = %q
base_url = %q
page_delay_ms = 0

[import]
dir = %q

[paths]
state_dir = %q
export_dir = %q

[logging]
level = "warn"
`,
		cfg.Airtable.APIKey,
		cfg.Airtable.BaseID,
		cfg.Airtable.BaseURL,
		cfg.Import.Dir,
		cfg.Paths.StateDir,
		cfg.Paths.ExportDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeBase serves the subset of the Airtable API the commands use. Listing
// ignores filterByFormula; tests seed only records that would match.
type fakeBase struct {
	mu     sync.Mutex
	tables map[string][]airtable.APIRecord
	nextID int
	writes int
}

func newFakeBase() *fakeBase {
	return &fakeBase{tables: map[string][]airtable.APIRecord{"Students": nil, "Test Scores": nil}}
}

func (f *fakeBase) seed(table string, fields map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("rec%03d", f.nextID)
	f.tables[table] = append(f.tables[table], airtable.APIRecord{ID: id, CreatedTime: "2024-01-01T00:00:00.000Z", Fields: fields})
	return id
}

func (f *fakeBase) records(table string) []airtable.APIRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]airtable.APIRecord(nil), f.tables[table]...)
}

func (f *fakeBase) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeBase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/meta/bases/appTest/tables" {
		_, _ = w.Write([]byte(fakeSchema))
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/appTest/"), "/")
	table := parts[0]

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tables[table]; !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
		return
	}

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"records": f.tables[table]})
	case r.Method == http.MethodPost:
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.nextID++
		f.writes++
		rec := airtable.APIRecord{ID: fmt.Sprintf("rec%03d", f.nextID), CreatedTime: "2024-06-01T00:00:00.000Z", Fields: body.Fields}
		f.tables[table] = append(f.tables[table], rec)
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPatch && len(parts) == 2:
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for i, rec := range f.tables[table] {
			if rec.ID != parts[1] {
				continue
			}
			for k, v := range body.Fields {
				rec.Fields[k] = v
			}
			f.tables[table][i] = rec
			f.writes++
			_ = json.NewEncoder(w).Encode(rec)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

const fakeSchema = `{"tables":[
 {"id":"tblS","name":"Students","fields":[
  {"id":"f1","name":"ID","type":"number"},
  {"id":"f2","name":"Zeraki ADM No","type":"number"},
  {"id":"f3","name":"First name","type":"singleLineText"},
  {"id":"f4","name":"Last name","type":"singleLineText"},
  {"id":"f5","name":"Grad Class","type":"singleSelect","options":{"choices":[{"name":"2024"},{"name":"2025"}]}},
  {"id":"f6","name":"KCPE","type":"number"}
 ]},
 {"id":"tblT","name":"Test Scores","fields":[
  {"id":"f7","name":"Student","type":"multipleRecordLinks"},
  {"id":"f8","name":"Date","type":"date"},
  {"id":"f9","name":"Form","type":"singleSelect"},
  {"id":"f10","name":"Type","type":"singleSelect"},
  {"id":"f11","name":"Subject","type":"singleSelect"},
  {"id":"f12","name":"Grade","type":"singleSelect"},
  {"id":"f13","name":"Score","type":"number"}
 ]}
]}`
