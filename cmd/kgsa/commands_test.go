package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "appTest")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestExportWritesTables(t *testing.T) {
	env := setupCLITestEnv(t)
	env.base.seed("Students", map[string]any{"ID": 2500.0, "Last name": "Smith"})
	dir := filepath.Join(t.TempDir(), "dump")

	out, _, err := runCLI(t, []string{"export", "--dir", dir}, env.configPath, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Students")
	requireContains(t, out, "Test Scores")

	data, err := os.ReadFile(filepath.Join(dir, "Students.json"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(rows) != 1 || rows[0]["Last name"] != "Smith" || rows[0]["airtable_id"] == "" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if _, err := os.Stat(filepath.Join(dir, "_schema.json")); err != nil {
		t.Fatalf("schema not written: %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No imports recorded yet.")
}
