package reconcile

import "kgsa/internal/textutil"

// MatchByKey looks up the row's admission number among candidates. The first
// candidate with an equal key wins; duplicates are not detected. A row whose
// key does not parse never key-matches.
func MatchByKey(row ImportRow, candidates []StoredRecord) MatchOutcome {
	key, ok := row.Key()
	if !ok {
		return noMatch()
	}
	for i := range candidates {
		stored, ok := candidates[i].KeyInt()
		if !ok || stored != key {
			continue
		}
		rec := candidates[i]
		if namesEqual(row, rec) {
			return MatchOutcome{Kind: MatchExact, Record: &rec}
		}
		return MatchOutcome{Kind: MatchKey, Record: &rec}
	}
	return noMatch()
}

func namesEqual(row ImportRow, rec StoredRecord) bool {
	return textutil.NormalizeName(row.FirstName) == textutil.NormalizeName(rec.FirstName) &&
		textutil.NormalizeName(row.LastName) == textutil.NormalizeName(rec.LastName)
}
