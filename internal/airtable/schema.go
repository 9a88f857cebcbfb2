package airtable

import (
	"encoding/json"
	"strings"
)

// Field types reported by the metadata API that the store coerces.
const (
	TypeNumber      = "number"
	TypeCurrency    = "currency"
	TypePercent     = "percent"
	TypeRating      = "rating"
	TypeDuration    = "duration"
	TypeSingleLine  = "singleLineText"
	TypeMultiLine   = "multilineText"
	TypeSingleSel   = "singleSelect"
	TypeRecordLinks = "multipleRecordLinks"
	TypeDate        = "date"
)

var readOnlyTypes = map[string]struct{}{
	"autoNumber":           {},
	"formula":              {},
	"rollup":               {},
	"lookup":               {},
	"multipleLookupValues": {},
	"count":                {},
	"createdTime":          {},
	"lastModifiedTime":     {},
	"createdBy":            {},
	"lastModifiedBy":       {},
}

// Schema is the table metadata of a base.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Table describes one table.
type Table struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	PrimaryFieldID string        `json:"primaryFieldId"`
	Fields         []FieldSchema `json:"fields"`
}

// FieldSchema describes one column.
type FieldSchema struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Options json.RawMessage `json:"options,omitempty"`
}

// Table looks a table up by name, case-insensitively.
func (s *Schema) Table(name string) (Table, bool) {
	if s == nil {
		return Table{}, false
	}
	for _, table := range s.Tables {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return Table{}, false
}

// Field looks a column up by name.
func (t Table) Field(name string) (FieldSchema, bool) {
	for _, field := range t.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSchema{}, false
}

// ReadOnly reports whether the API computes the column itself.
func (f FieldSchema) ReadOnly() bool {
	_, ok := readOnlyTypes[f.Type]
	return ok
}

// Choices returns the option names of a select column in display order.
func (f FieldSchema) Choices() []string {
	if len(f.Options) == 0 {
		return nil
	}
	var opts struct {
		Choices []struct {
			Name string `json:"name"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(f.Options, &opts); err != nil {
		return nil
	}
	names := make([]string, 0, len(opts.Choices))
	for _, choice := range opts.Choices {
		names = append(names, choice.Name)
	}
	return names
}
