package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"kgsa/internal/logging"
	"kgsa/internal/textutil"
)

const schemaFileName = "_schema.json"

type exportSource interface {
	SchemaJSON(ctx context.Context) (json.RawMessage, error)
	ListRecords(ctx context.Context, table string, opts ListOptions) ([]APIRecord, error)
}

// TableExport reports one written table file.
type TableExport struct {
	Name    string
	Records int
	Path    string
}

// ExportResult lists what Export wrote.
type ExportResult struct {
	SchemaPath string
	Tables     []TableExport
}

// Export writes the base schema and every table's records under dir.
func Export(ctx context.Context, client *Client, dir string, logger *slog.Logger) (*ExportResult, error) {
	return export(ctx, client, dir, logging.NewComponentLogger(logger, "export"))
}

func export(ctx context.Context, src exportSource, dir string, logger *slog.Logger) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	raw, err := src.SchemaJSON(ctx)
	if err != nil {
		return nil, err
	}
	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "    "); err != nil {
		return nil, fmt.Errorf("format schema: %w", err)
	}
	result := &ExportResult{SchemaPath: filepath.Join(dir, schemaFileName)}
	if err := os.WriteFile(result.SchemaPath, pretty.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write schema: %w", err)
	}

	for _, table := range schema.Tables {
		records, err := src.ListRecords(ctx, table.Name, ListOptions{})
		if err != nil {
			return result, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(rec.Fields)+2)
			row["airtable_id"] = rec.ID
			for name, value := range rec.Fields {
				row[name] = value
			}
			row["airtable_createdTime"] = rec.CreatedTime
			rows = append(rows, row)
		}
		encoded, err := json.MarshalIndent(rows, "", "    ")
		if err != nil {
			return result, fmt.Errorf("encode %s: %w", table.Name, err)
		}
		path := filepath.Join(dir, textutil.SanitizeFileName(table.Name)+".json")
		if err := os.WriteFile(path, encoded, 0o644); err != nil {
			return result, fmt.Errorf("write %s: %w", table.Name, err)
		}
		logger.Info("table exported", "table", table.Name, "records", len(rows), "path", path)
		result.Tables = append(result.Tables, TableExport{Name: table.Name, Records: len(rows), Path: path})
	}
	return result, nil
}
