// Package logging assembles the slog loggers used across the importer.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standard attribute keys (component, row, adm_no,
// student_id, outcome, run_id) so every reconciliation decision is logged with
// the same shape. NewNop supplies a discard logger for tests.
package logging
