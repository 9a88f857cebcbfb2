package airtable

import (
	"strings"

	"kgsa/internal/reconcile"
)

var (
	stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	fieldEscaper  = strings.NewReplacer(`}`, `\}`)
)

// Formula renders equality conditions as a filterByFormula expression.
// Several conditions are joined with AND; none yields the empty string.
func Formula(where ...reconcile.Condition) string {
	terms := make([]string, 0, len(where))
	for _, cond := range where {
		if strings.TrimSpace(cond.Field) == "" {
			continue
		}
		terms = append(terms, "{"+fieldEscaper.Replace(cond.Field)+"}='"+stringEscaper.Replace(cond.Value)+"'")
	}
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	default:
		return "AND(" + strings.Join(terms, ",") + ")"
	}
}
