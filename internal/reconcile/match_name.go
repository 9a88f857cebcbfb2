package reconcile

import (
	"context"
	"fmt"

	"kgsa/internal/prompt"
	"kgsa/internal/textutil"
)

// NoneOfThese is appended to every candidate menu.
const NoneOfThese = "None of these"

// DuplicateCandidateError reports two different stored records that render
// to the same menu label.
type DuplicateCandidateError struct {
	Label   string
	Handles []string
}

func (e *DuplicateCandidateError) Error() string {
	return fmt.Sprintf("duplicate candidate %q (records %v)", e.Label, e.Handles)
}

// tierOrder is the order tiers are offered to the operator.
var tierOrder = []Tier{TierLast, TierFirst, TierCommon, TierNone}

// NameTier classifies a candidate against the row's name. An empty name
// part never matches on its own.
func NameTier(row ImportRow, rec StoredRecord) Tier {
	first := samePart(row.FirstName, rec.FirstName)
	last := samePart(row.LastName, rec.LastName)
	switch {
	case first && (last || bothEmpty(row.LastName, rec.LastName)):
		return TierFull
	case last:
		return TierLast
	case first:
		return TierFirst
	case textutil.SharesToken(textutil.FullName(row.FirstName, row.LastName), textutil.FullName(rec.FirstName, rec.LastName)):
		return TierCommon
	default:
		return TierNone
	}
}

func samePart(a, b string) bool {
	na := textutil.NormalizeName(a)
	return na != "" && na == textutil.NormalizeName(b)
}

func bothEmpty(a, b string) bool {
	return textutil.NormalizeName(a) == "" && textutil.NormalizeName(b) == ""
}

// NameMatcher resolves rows that did not key-match by asking the operator to
// pick from the best tier of name candidates.
type NameMatcher struct {
	prompter prompt.Prompter
}

// NewNameMatcher constructs a matcher that escalates through p.
func NewNameMatcher(p prompt.Prompter) *NameMatcher {
	return &NameMatcher{prompter: p}
}

// Match returns the resolved outcome. cancelled is true when the operator quit;
// the outcome is then meaningless and the caller must stop the run.
//
// A full first and last name match is accepted without a prompt. Otherwise
// only the highest non-empty tier is offered (last, first, common token, then
// every candidate); declining it yields MatchNone without trying lower tiers.
func (m *NameMatcher) Match(ctx context.Context, row ImportRow, candidates []StoredRecord) (outcome MatchOutcome, cancelled bool, err error) {
	if row.PlaceholderName || len(candidates) == 0 {
		return noMatch(), false, nil
	}

	tiers := make(map[Tier][]StoredRecord, len(tierOrder))
	for _, rec := range candidates {
		tier := NameTier(row, rec)
		if tier == TierFull {
			chosen := rec
			return MatchOutcome{Kind: MatchConfirmed, Tier: TierFull, Record: &chosen}, false, nil
		}
		tiers[tier] = append(tiers[tier], rec)
	}

	for _, tier := range tierOrder {
		group := tiers[tier]
		if tier == TierNone {
			group = candidates
		}
		if len(group) == 0 {
			continue
		}
		return m.adjudicate(ctx, row, tier, group)
	}
	return noMatch(), false, nil
}

func (m *NameMatcher) adjudicate(ctx context.Context, row ImportRow, tier Tier, group []StoredRecord) (MatchOutcome, bool, error) {
	group, options, err := dedupeCandidates(group)
	if err != nil {
		return MatchOutcome{}, false, err
	}
	options = append(options, NoneOfThese)

	question := fmt.Sprintf("Row %d: no admission number match for %s (ADM %s). Candidates by %s name:",
		row.Ordinal, row.DisplayName(), displayKey(row.RawKey), tierQuestionLabel(tier))
	resp, err := m.prompter.Choose(ctx, question, options, true)
	if err != nil {
		return MatchOutcome{}, false, fmt.Errorf("name adjudication: %w", err)
	}
	switch resp.Status {
	case prompt.Cancelled:
		return MatchOutcome{}, true, nil
	case prompt.Declined:
		return noMatch(), false, nil
	}
	if resp.Index < 0 || resp.Index >= len(options) {
		return MatchOutcome{}, false, fmt.Errorf("name adjudication: choice %d out of range", resp.Index)
	}
	if resp.Index == len(group) {
		return noMatch(), false, nil
	}
	chosen := group[resp.Index]
	return MatchOutcome{Kind: MatchName, Tier: tier, Record: &chosen}, false, nil
}

// dedupeCandidates drops repeated records and returns the menu labels in
// candidate order. Two distinct records sharing a label is an error.
func dedupeCandidates(group []StoredRecord) ([]StoredRecord, []string, error) {
	unique := make([]StoredRecord, 0, len(group))
	labels := make([]string, 0, len(group)+1)
	seen := make(map[string]string, len(group))
	for _, rec := range group {
		label := rec.Label()
		if owner, ok := seen[label]; ok {
			if owner == rec.Handle {
				continue
			}
			return nil, nil, &DuplicateCandidateError{Label: label, Handles: []string{owner, rec.Handle}}
		}
		seen[label] = rec.Handle
		unique = append(unique, rec)
		labels = append(labels, label)
	}
	return unique, labels, nil
}

func tierQuestionLabel(tier Tier) string {
	switch tier {
	case TierLast:
		return "matching last"
	case TierFirst:
		return "matching first"
	case TierCommon:
		return "shared"
	default:
		return "any"
	}
}

func displayKey(raw string) string {
	if raw == "" {
		return "-"
	}
	return raw
}
