package prompt

import "context"

// Status is the three-way result of a prompt.
type Status int

const (
	Selected Status = iota
	Declined
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Selected:
		return "selected"
	case Declined:
		return "declined"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Response carries the operator's answer. Index and Value are set only when
// Status is Selected and the prompt was a Choose.
type Response struct {
	Status Status
	Index  int
	Value  string
}

// Yes reports whether a Confirm was answered affirmatively.
func (r Response) Yes() bool { return r.Status == Selected }

// Prompter asks the operator to pick from a list or to confirm an action.
// Implementations block until an answer is given or ctx is done.
type Prompter interface {
	Choose(ctx context.Context, question string, options []string, cancellable bool) (Response, error)
	Confirm(ctx context.Context, question string) (Response, error)
}

// SelectedOption builds a Selected response for options[index].
func SelectedOption(options []string, index int) Response {
	return Response{Status: Selected, Index: index, Value: options[index]}
}
