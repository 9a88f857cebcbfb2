package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SubjectGrade is one subject cell from an exam export.
type SubjectGrade struct {
	Subject string
	Letter  string
	Marks   *float64
}

// ImportRow is one parsed CSV line.
type ImportRow struct {
	Ordinal   int
	RawKey    string
	RawName   string
	FirstName string
	LastName  string
	// PlaceholderName is set when the export had no usable name and
	// FirstName/LastName were filled with a placeholder.
	PlaceholderName bool
	KCPE            *float64
	Subjects        []SubjectGrade
}

// Key parses the admission number. ok is false when it is absent or not an
// integer.
func (r ImportRow) Key() (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(r.RawKey))
	if err != nil {
		return 0, false
	}
	return value, true
}

// DisplayName renders the row's name for prompts and logs.
func (r ImportRow) DisplayName() string {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" {
		return fmt.Sprintf("Row %d", r.Ordinal)
	}
	return name
}

// Record is a raw record as returned by a Store.
type Record struct {
	Handle      string
	Fields      map[string]any
	CreatedTime time.Time
}

// StoredRecord is a student record already present in the base.
type StoredRecord struct {
	Handle    string
	ID        int
	Key       any
	FirstName string
	LastName  string
	Partition string
	KCPE      any
	Fields    map[string]any
}

// StudentFromRecord projects a raw students-table record.
func StudentFromRecord(rec Record) StoredRecord {
	fields := rec.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	id, _ := intValue(fields[FieldID])
	return StoredRecord{
		Handle:    rec.Handle,
		ID:        id,
		Key:       fields[FieldAdmNo],
		FirstName: stringValue(fields[FieldFirstName]),
		LastName:  stringValue(fields[FieldLastName]),
		Partition: stringValue(fields[FieldGradClass]),
		KCPE:      fields[FieldKCPE],
		Fields:    fields,
	}
}

// KeyInt returns the stored admission number as an integer.
func (s StoredRecord) KeyInt() (int, bool) {
	return intValue(s.Key)
}

// Label renders the candidate the way it is offered to the operator.
func (s StoredRecord) Label() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		name = "(no name)"
	}
	key := stringValue(s.Key)
	if key == "" {
		key = "-"
	}
	return fmt.Sprintf("%s (ID %d, ADM %s)", name, s.ID, key)
}

func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
