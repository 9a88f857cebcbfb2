package reconcile

// Students table fields.
const (
	FieldID        = "ID"
	FieldAdmNo     = "Zeraki ADM No"
	FieldFirstName = "First name"
	FieldLastName  = "Last name"
	FieldGradClass = "Grad Class"
	FieldKCPE      = "KCPE"
)

// Test scores table fields.
const (
	FieldStudent = "Student"
	FieldDate    = "Date"
	FieldForm    = "Form"
	FieldType    = "Type"
	FieldSubject = "Subject"
	FieldGrade   = "Grade"
	FieldScore   = "Score"
)

// Field is one named value in an ordered field set.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered field set. Order is preserved through diffing and is
// the order fields are shown to operators.
type Fields []Field

// Get returns the value stored under name.
func (f Fields) Get(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Names lists field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Map converts the field set into a name/value map for transport.
func (f Fields) Map() map[string]any {
	out := make(map[string]any, len(f))
	for _, field := range f {
		out[field.Name] = field.Value
	}
	return out
}
