package reconcile_test

import (
	"kgsa/internal/reconcile"
)

const (
	studentsTable = "Students"
	scoresTable   = "Test Scores"
)

func student(id, key int, first, last, class string) map[string]any {
	return map[string]any{
		reconcile.FieldID:        id,
		reconcile.FieldAdmNo:     key,
		reconcile.FieldFirstName: first,
		reconcile.FieldLastName:  last,
		reconcile.FieldGradClass: class,
	}
}

func row(ordinal int, key, first, last string) reconcile.ImportRow {
	return reconcile.ImportRow{
		Ordinal:   ordinal,
		RawKey:    key,
		RawName:   first + " " + last,
		FirstName: first,
		LastName:  last,
	}
}

func stored(handle string, id, key int, first, last string) reconcile.StoredRecord {
	return reconcile.StudentFromRecord(reconcile.Record{Handle: handle, Fields: student(id, key, first, last, "2025")})
}

func marks(v float64) *float64 { return &v }
