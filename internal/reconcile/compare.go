package reconcile

import (
	"fmt"
	"reflect"
	"strings"
)

// DiffKind classifies one proposed field against the stored record.
type DiffKind int

const (
	DiffUnchanged DiffKind = iota
	DiffAdd
	DiffUpdate
)

func (k DiffKind) String() string {
	switch k {
	case DiffAdd:
		return "add"
	case DiffUpdate:
		return "update"
	default:
		return "unchanged"
	}
}

// FieldDiff is the comparison of one proposed field.
type FieldDiff struct {
	Name     string
	Proposed any
	Stored   any
	Kind     DiffKind
}

// Compare classifies every proposed field against stored. Output order follows
// proposed. A stored nil is treated as absent.
func Compare(proposed Fields, stored map[string]any) []FieldDiff {
	diffs := make([]FieldDiff, 0, len(proposed))
	for _, field := range proposed {
		current, ok := stored[field.Name]
		if !ok || current == nil {
			diffs = append(diffs, FieldDiff{Name: field.Name, Proposed: field.Value, Kind: DiffAdd})
			continue
		}
		kind := DiffUpdate
		if valuesEqual(field.Value, current) {
			kind = DiffUnchanged
		}
		diffs = append(diffs, FieldDiff{Name: field.Name, Proposed: field.Value, Stored: current, Kind: kind})
	}
	return diffs
}

// Changed filters out unchanged diffs.
func Changed(diffs []FieldDiff) []FieldDiff {
	out := make([]FieldDiff, 0, len(diffs))
	for _, diff := range diffs {
		if diff.Kind != DiffUnchanged {
			out = append(out, diff)
		}
	}
	return out
}

func valuesEqual(proposed, stored any) bool {
	if reflect.DeepEqual(proposed, stored) {
		return true
	}
	ps, pok := proposed.(string)
	ss, sok := stored.(string)
	if pok && sok {
		return strings.EqualFold(ps, ss)
	}
	return fmt.Sprint(proposed) == fmt.Sprint(stored)
}
