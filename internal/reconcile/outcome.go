package reconcile

// MatchKind classifies how an import row relates to the stored records.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchKey
	MatchName
	MatchConfirmed
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchKey:
		return "key-match"
	case MatchName:
		return "name-match"
	case MatchConfirmed:
		return "human-confirmed"
	default:
		return "no-match"
	}
}

// Tier is a name-similarity level. Higher values are more reliable.
type Tier int

const (
	TierNone Tier = iota
	TierCommon
	TierFirst
	TierLast
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierFirst:
		return "first"
	case TierLast:
		return "last"
	case TierFull:
		return "full"
	default:
		return "none"
	}
}

// MatchOutcome is the result of running a row through a matcher stage. Each
// stage returns a new value; Record is nil for MatchNone.
type MatchOutcome struct {
	Kind   MatchKind
	Tier   Tier
	Record *StoredRecord
}

// Matched reports whether the outcome references a stored record.
func (o MatchOutcome) Matched() bool {
	return o.Kind != MatchNone && o.Record != nil
}

func (o MatchOutcome) String() string {
	if o.Kind == MatchName || (o.Kind == MatchConfirmed && o.Tier != TierNone) {
		return o.Kind.String() + "{" + o.Tier.String() + "}"
	}
	return o.Kind.String()
}

func noMatch() MatchOutcome {
	return MatchOutcome{Kind: MatchNone}
}
