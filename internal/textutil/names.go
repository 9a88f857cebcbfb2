package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName folds case and collapses whitespace so two spellings of the
// same name compare equal.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(strings.Join(fields, " "))
}

// NameTokens returns the normalised whitespace-delimited tokens of name.
func NameTokens(name string) []string {
	return strings.Fields(NormalizeName(name))
}

// SharesToken reports whether the two names have at least one token in common.
func SharesToken(a, b string) bool {
	left := NameTokens(a)
	if len(left) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(left))
	for _, token := range left {
		seen[token] = struct{}{}
	}
	for _, token := range NameTokens(b) {
		if _, ok := seen[token]; ok {
			return true
		}
	}
	return false
}

// TitleCase converts "JANE WANJIKU" to "Jane Wanjiku".
func TitleCase(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.Und).String(strings.Join(fields, " "))
}

// SplitName splits a display name into a first name (the first token) and a
// last name (the remaining tokens joined by single spaces). Both parts are
// title-cased.
func SplitName(display string) (first, last string) {
	fields := strings.Fields(display)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return TitleCase(fields[0]), ""
	default:
		return TitleCase(fields[0]), TitleCase(strings.Join(fields[1:], " "))
	}
}

// FullName joins first and last with a single space, skipping blanks.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(first+" "+last), " "))
}
