package zeraki

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"kgsa/internal/reconcile"
)

// examFilePattern matches "C2025 - Term 1 - Mid Term - Form 3 - 2024-03-01.csv".
var examFilePattern = regexp.MustCompile(`^C(\d{4}) - (.+) - (Form \d) - (\d{4}-\d{2}-\d{2})\.csv$`)

// ExamFile is the metadata encoded in a converted export's file name.
type ExamFile struct {
	GradClass string
	Exam      reconcile.Exam
}

// ParseExamFileName recovers exam metadata from a converted export's name.
func ParseExamFileName(path string) (ExamFile, error) {
	name := filepath.Base(path)
	match := examFilePattern.FindStringSubmatch(name)
	if match == nil {
		return ExamFile{}, fmt.Errorf("file name %q does not follow %q", name, "C<year> - <type> - Form <n> - <YYYY-MM-DD>.csv")
	}
	if _, err := time.Parse(time.DateOnly, match[4]); err != nil {
		return ExamFile{}, fmt.Errorf("file name %q: invalid date: %w", name, err)
	}
	return ExamFile{
		GradClass: match[1],
		Exam: reconcile.Exam{
			Type: strings.TrimSpace(match[2]),
			Form: match[3],
			Date: match[4],
		},
	}, nil
}
