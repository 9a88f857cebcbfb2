package zeraki

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"kgsa/internal/reconcile"
	"kgsa/internal/textutil"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing required column")

// HeaderError reports a header row that does not match the export layout.
type HeaderError struct {
	Got []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("unexpected header row: expected %q, got %q",
		strings.Join(ExpectedHeaders, ","), strings.Join(e.Got, ","))
}

// Options controls parsing.
type Options struct {
	// Strict requires the header row to equal ExpectedHeaders.
	Strict bool
}

// Sheet is a parsed export.
type Sheet struct {
	Headers []string
	Rows    []reconcile.ImportRow
	// Warnings describes cells that could not be interpreted. The affected
	// values are treated as absent.
	Warnings []string
}

var gradeCellPattern = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)\s*)?([A-Za-z][+-]?)?$`)

// ParseFile opens and parses path.
func ParseFile(path string, opts Options) (*Sheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer file.Close()

	sheet, err := Parse(file, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return sheet, nil
}

// Parse reads an export from r. Blank lines are skipped; every other line
// yields a row, numbered from 1 after the header.
func Parse(r io.Reader, opts Options) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("export is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	if opts.Strict && !equalHeaders(headers, ExpectedHeaders) {
		return nil, &HeaderError{Got: headers}
	}

	index := make(map[string]int, len(headers))
	for i, name := range headers {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	for _, required := range []string{ColumnAdmNo, ColumnName} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, required)
		}
	}

	sheet := &Sheet{Headers: headers}
	ordinal := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", ordinal+1, err)
		}
		if blankRecord(record) {
			continue
		}
		ordinal++
		sheet.Rows = append(sheet.Rows, sheet.parseRow(ordinal, record, index))
	}
	return sheet, nil
}

func (s *Sheet) parseRow(ordinal int, record []string, index map[string]int) reconcile.ImportRow {
	cell := func(column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := reconcile.ImportRow{
		Ordinal: ordinal,
		RawKey:  cell(ColumnAdmNo),
		RawName: cell(ColumnName),
	}
	if row.RawKey != "" {
		if _, ok := row.Key(); !ok {
			s.warnf("row %d: %s %q is not a number", ordinal, ColumnAdmNo, row.RawKey)
		}
	}

	row.FirstName, row.LastName = textutil.SplitName(row.RawName)
	if row.FirstName == "" {
		row.FirstName = "Unknown"
		row.LastName = fmt.Sprintf("Row %d", ordinal)
		row.PlaceholderName = true
		s.warnf("row %d: no student name; using placeholder %q", ordinal, row.FirstName+" "+row.LastName)
	}

	if raw := cell(ColumnKCPE); raw != "" && raw != "-" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			row.KCPE = &value
		} else {
			s.warnf("row %d: %s %q is not a number", ordinal, ColumnKCPE, raw)
		}
	}

	for _, subject := range SubjectColumns {
		if _, ok := index[subject]; !ok {
			continue
		}
		if grade, ok := s.parseGrade(ordinal, subject, cell(subject)); ok {
			row.Subjects = append(row.Subjects, grade)
		}
	}
	if overall, ok := s.parseOverall(ordinal, cell(ColumnMeanMarks), cell(ColumnMeanGrade)); ok {
		row.Subjects = append(row.Subjects, overall)
	}
	return row
}

// parseGrade reads "<marks> <letter>", "<marks><letter>", "<marks>" or
// "<letter>". Blank and "-" cells carry no grade.
func (s *Sheet) parseGrade(ordinal int, subject, raw string) (reconcile.SubjectGrade, bool) {
	if raw == "" || raw == "-" {
		return reconcile.SubjectGrade{}, false
	}
	match := gradeCellPattern.FindStringSubmatch(raw)
	if match == nil || (match[1] == "" && match[2] == "") {
		s.warnf("row %d: %s grade %q not understood", ordinal, subject, raw)
		return reconcile.SubjectGrade{}, false
	}
	grade := reconcile.SubjectGrade{Subject: subject, Letter: strings.ToUpper(match[2])}
	if match[1] != "" {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			s.warnf("row %d: %s marks %q not understood", ordinal, subject, match[1])
			return reconcile.SubjectGrade{}, false
		}
		grade.Marks = &value
	}
	return grade, true
}

func (s *Sheet) parseOverall(ordinal int, marks, letter string) (reconcile.SubjectGrade, bool) {
	combined := strings.TrimSpace(strings.Trim(marks, "-") + " " + strings.Trim(letter, "-"))
	return s.parseGrade(ordinal, OverallSubjectCode, combined)
}

func (s *Sheet) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

func equalHeaders(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
