package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"kgsa/internal/reconcile"
	"kgsa/internal/testsupport"
)

func TestMatchByKey(t *testing.T) {
	candidates := []reconcile.StoredRecord{
		stored("rec1", 12, 501, "Jane", "Smyth"),
		stored("rec2", 13, 502, "Peter", "Otieno"),
		stored("rec3", 14, 502, "Paul", "Otieno"),
	}

	tests := []struct {
		name       string
		row        reconcile.ImportRow
		wantKind   reconcile.MatchKind
		wantHandle string
	}{
		{"exact ignores case", row(1, "502", "PETER", "OTIENO"), reconcile.MatchExact, "rec2"},
		{"key match with different name", row(2, "501", "Jane", "Smith"), reconcile.MatchKey, "rec1"},
		{"first candidate wins", row(3, "502", "Paul", "Otieno"), reconcile.MatchKey, "rec2"},
		{"unknown key", row(4, "777", "Jane", "Smyth"), reconcile.MatchNone, ""},
		{"unparseable key", row(5, "50I", "Jane", "Smyth"), reconcile.MatchNone, ""},
		{"blank key", row(6, "", "Jane", "Smyth"), reconcile.MatchNone, ""},
		{"padded key", row(7, " 501 ", "jane", "smyth"), reconcile.MatchExact, "rec1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.MatchByKey(tt.row, candidates)
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if tt.wantHandle == "" {
				if got.Record != nil {
					t.Fatalf("expected no record, got %+v", got.Record)
				}
				return
			}
			if got.Record == nil || got.Record.Handle != tt.wantHandle {
				t.Fatalf("record = %+v, want handle %s", got.Record, tt.wantHandle)
			}
		})
	}
}

func TestMatchByKeyAcceptsTextKeys(t *testing.T) {
	candidates := []reconcile.StoredRecord{reconcile.StudentFromRecord(reconcile.Record{
		Handle: "rec9",
		Fields: map[string]any{reconcile.FieldAdmNo: "0601", reconcile.FieldFirstName: "Ann", reconcile.FieldLastName: "Wanjiru"},
	})}
	if got := reconcile.MatchByKey(row(1, "601", "Ann", "Wanjiru"), candidates); got.Kind != reconcile.MatchExact {
		t.Fatalf("kind = %v, want exact", got.Kind)
	}
}

func TestNameTier(t *testing.T) {
	rec := stored("rec1", 1, 1, "Mary", "Atieno Odhiambo")
	tests := []struct {
		first, last string
		want        reconcile.Tier
	}{
		{"MARY", "ATIENO ODHIAMBO", reconcile.TierFull},
		{"Grace", "Atieno Odhiambo", reconcile.TierLast},
		{"Mary", "Wanjiru", reconcile.TierFirst},
		{"Atieno", "Kamau", reconcile.TierCommon},
		{"John", "Doe", reconcile.TierNone},
	}
	for _, tt := range tests {
		if got := reconcile.NameTier(row(1, "", tt.first, tt.last), rec); got != tt.want {
			t.Errorf("NameTier(%s %s) = %v, want %v", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestNameTierEmptyParts(t *testing.T) {
	tests := []struct {
		name string
		row  reconcile.ImportRow
		rec  reconcile.StoredRecord
		want reconcile.Tier
	}{
		{"empty last names are not a last match", row(1, "", "Wanjiku", ""), stored("a", 12, 900, "Peter", ""), reconcile.TierNone},
		{"empty stored name", row(1, "", "Wanjiku", ""), stored("a", 12, 900, "", ""), reconcile.TierNone},
		{"single token against full name", row(1, "", "Wanjiku", ""), stored("a", 13, 901, "Wanjiku", "Kamau"), reconcile.TierFirst},
		{"single token against single token", row(1, "", "Wanjiku", ""), stored("a", 14, 902, "WANJIKU", ""), reconcile.TierFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconcile.NameTier(tt.row, tt.rec); got != tt.want {
				t.Errorf("NameTier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNameMatcherSingleTokenNameOffersFirstNameTier(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter(testsupport.Pick(0))
	candidates := []reconcile.StoredRecord{
		stored("rec1", 12, 900, "Peter", ""),
		stored("rec2", 13, 901, "Wanjiku", "Kamau"),
	}
	r := row(1, "", "Wanjiku", "")
	r.RawName = "WANJIKU"

	got, cancelled, err := reconcile.NewNameMatcher(prompter).Match(context.Background(), r, candidates)
	if err != nil || cancelled {
		t.Fatalf("Match returned err=%v cancelled=%v", err, cancelled)
	}
	asked := prompter.Asked()
	if len(asked) != 1 {
		t.Fatalf("expected one prompt, got %d", len(asked))
	}
	wantOptions := []string{"Wanjiku Kamau (ID 13, ADM 901)", reconcile.NoneOfThese}
	if len(asked[0].Options) != len(wantOptions) {
		t.Fatalf("options = %v, want %v", asked[0].Options, wantOptions)
	}
	for i := range wantOptions {
		if asked[0].Options[i] != wantOptions[i] {
			t.Fatalf("options = %v, want %v", asked[0].Options, wantOptions)
		}
	}
	if got.Kind != reconcile.MatchName || got.Tier != reconcile.TierFirst || got.Record.Handle != "rec2" {
		t.Fatalf("unexpected outcome: %+v", got)
	}
}

func TestNameMatcherFullNameSkipsPrompt(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter()
	matcher := reconcile.NewNameMatcher(prompter)
	candidates := []reconcile.StoredRecord{
		stored("rec1", 1, 100, "Grace", "Smith"),
		stored("rec2", 2, 101, "Jane", "Smith"),
	}

	got, cancelled, err := matcher.Match(context.Background(), row(1, "999", "JANE", "SMITH"), candidates)
	if err != nil || cancelled {
		t.Fatalf("Match returned err=%v cancelled=%v", err, cancelled)
	}
	if got.Kind != reconcile.MatchConfirmed || got.Tier != reconcile.TierFull || got.Record.Handle != "rec2" {
		t.Fatalf("unexpected outcome: %+v", got)
	}
	if len(prompter.Asked()) != 0 {
		t.Fatalf("full-name match must not prompt, asked %v", prompter.Asked())
	}
}

func TestNameMatcherOffersOnlyHighestTier(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter(testsupport.Pick(1))
	matcher := reconcile.NewNameMatcher(prompter)
	candidates := []reconcile.StoredRecord{
		stored("rec1", 1, 100, "Jane", "Wanjiru"),
		stored("rec2", 2, 101, "Grace", "Smith"),
		stored("rec3", 3, 102, "Ann", "Smith"),
		stored("rec4", 4, 103, "Smith", "Kamau"),
	}

	got, _, err := matcher.Match(context.Background(), row(1, "", "Jane", "Smith"), candidates)
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	asked := prompter.Asked()
	if len(asked) != 1 {
		t.Fatalf("expected one prompt, got %d", len(asked))
	}
	wantOptions := []string{"Grace Smith (ID 2, ADM 101)", "Ann Smith (ID 3, ADM 102)", reconcile.NoneOfThese}
	if len(asked[0].Options) != len(wantOptions) {
		t.Fatalf("options = %v, want %v", asked[0].Options, wantOptions)
	}
	for i := range wantOptions {
		if asked[0].Options[i] != wantOptions[i] {
			t.Fatalf("options = %v, want %v", asked[0].Options, wantOptions)
		}
	}
	if got.Kind != reconcile.MatchName || got.Tier != reconcile.TierLast || got.Record.Handle != "rec3" {
		t.Fatalf("unexpected outcome: %+v", got)
	}
}

func TestNameMatcherTierFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		candidates []reconcile.StoredRecord
		wantTier   reconcile.Tier
		wantCount  int
	}{
		{
			name:       "first name tier",
			candidates: []reconcile.StoredRecord{stored("a", 1, 1, "Jane", "Wanjiru"), stored("b", 2, 2, "Ann", "Kamau")},
			wantTier:   reconcile.TierFirst,
			wantCount:  1,
		},
		{
			name:       "common token tier",
			candidates: []reconcile.StoredRecord{stored("a", 1, 1, "Smith", "Wanjiru"), stored("b", 2, 2, "Ann", "Kamau")},
			wantTier:   reconcile.TierCommon,
			wantCount:  1,
		},
		{
			name:       "every candidate when nothing matches",
			candidates: []reconcile.StoredRecord{stored("a", 1, 1, "Peter", "Wanjiru"), stored("b", 2, 2, "Ann", "Kamau")},
			wantTier:   reconcile.TierNone,
			wantCount:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := testsupport.NewScriptedPrompter(testsupport.Pick(0))
			got, _, err := reconcile.NewNameMatcher(prompter).Match(context.Background(), row(1, "", "Jane", "Smith"), tt.candidates)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if got.Kind != reconcile.MatchName || got.Tier != tt.wantTier {
				t.Fatalf("outcome = %v, want name-match{%v}", got, tt.wantTier)
			}
			if options := prompter.Asked()[0].Options; len(options) != tt.wantCount+1 {
				t.Fatalf("expected %d candidates plus escape, got %v", tt.wantCount, options)
			}
		})
	}
}

func TestNameMatcherDeclineDoesNotFallThrough(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter(testsupport.Pick(1), testsupport.Pick(0))
	candidates := []reconcile.StoredRecord{
		stored("rec1", 1, 100, "Grace", "Smith"),
		stored("rec2", 2, 101, "Jane", "Wanjiru"),
	}

	got, cancelled, err := reconcile.NewNameMatcher(prompter).Match(context.Background(), row(1, "", "Jane", "Smith"), candidates)
	if err != nil || cancelled {
		t.Fatalf("Match returned err=%v cancelled=%v", err, cancelled)
	}
	if got.Kind != reconcile.MatchNone || got.Record != nil {
		t.Fatalf("expected no-match after declining, got %+v", got)
	}
	if len(prompter.Asked()) != 1 {
		t.Fatalf("declining must not offer lower tiers, asked %d times", len(prompter.Asked()))
	}
}

func TestNameMatcherCancel(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter(testsupport.Quit())
	_, cancelled, err := reconcile.NewNameMatcher(prompter).Match(context.Background(), row(1, "", "Jane", "Smith"),
		[]reconcile.StoredRecord{stored("rec1", 1, 100, "Grace", "Smith")})
	if err != nil {
		t.Fatalf("cancel must not be an error, got %v", err)
	}
	if !cancelled {
		t.Fatal("expected cancelled")
	}
}

func TestNameMatcherDuplicateCandidate(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter(testsupport.Pick(0))
	candidates := []reconcile.StoredRecord{
		stored("rec1", 7, 100, "Grace", "Smith"),
		stored("rec2", 7, 100, "Grace", "Smith"),
	}
	_, _, err := reconcile.NewNameMatcher(prompter).Match(context.Background(), row(1, "", "Ann", "Smith"), candidates)
	var dup *reconcile.DuplicateCandidateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateCandidateError, got %v", err)
	}
	if dup.Label != "Grace Smith (ID 7, ADM 100)" {
		t.Fatalf("unexpected label %q", dup.Label)
	}
	if len(prompter.Asked()) != 0 {
		t.Fatal("must not prompt with colliding labels")
	}
}

func TestNameMatcherSkipsPlaceholderNames(t *testing.T) {
	prompter := testsupport.NewScriptedPrompter()
	r := row(4, "", "Unknown", "Row 4")
	r.PlaceholderName = true
	got, _, err := reconcile.NewNameMatcher(prompter).Match(context.Background(), r,
		[]reconcile.StoredRecord{stored("rec1", 1, 100, "Unknown", "Row 4")})
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if got.Kind != reconcile.MatchNone || len(prompter.Asked()) != 0 {
		t.Fatalf("placeholder rows must not be name matched: %+v", got)
	}
}
