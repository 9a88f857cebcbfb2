// Package reconcile decides, row by row, whether an imported Zeraki record is
// already present in the student base, needs updating, or should be created.
//
// The matcher chain runs the exact-key matcher first and falls back to the
// tiered name matcher, which escalates to a human through a prompt.Prompter
// whenever a candidate is not an unambiguous full-name match. Field diffs are
// computed with Compare and approved field by field before any mutation is
// handed to the Store.
//
// StudentReconciler and GradeReconciler process rows strictly in order.
// Cancellation from a prompt stops the run and returns the counters
// accumulated so far with a nil error.
package reconcile
