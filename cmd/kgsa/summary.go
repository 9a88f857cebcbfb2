package main

import (
	"fmt"
	"strconv"
	"strings"

	"kgsa/internal/reconcile"
)

func summaryRows(summary reconcile.Summary) [][]string {
	counts := []struct {
		label string
		value int
	}{
		{"Created", summary.Created},
		{"Updated", summary.Updated},
		{"Unchanged", summary.Unchanged},
		{"Skipped", summary.Skipped},
		{"Failed", summary.Failed},
		{"Written with errors", summary.WithErrors},
		{"Total", summary.Total},
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.label, strconv.Itoa(c.value)})
	}
	return rows
}

func renderSummary(runID, kind string, dryRun bool, summary reconcile.Summary) string {
	unit := "rows"
	if kind == runKindGrades {
		unit = "score records"
	}
	var b strings.Builder
	title := fmt.Sprintf("Import %s (%s, counted in %s)", shortID(runID), kind, unit)
	if dryRun {
		title += " - dry run, nothing was written"
	}
	b.WriteString(title)
	b.WriteByte('\n')
	if summary.Cancelled {
		b.WriteString("Cancelled by operator; rows after the cancelled one were not processed.\n")
	}
	b.WriteString(renderTable([]string{"Outcome", "Count"}, summaryRows(summary), []columnAlignment{alignLeft, alignRight}))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
