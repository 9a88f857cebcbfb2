// Package journal keeps a local SQLite ledger of import runs.
//
// Each run row carries its final counters; each mutation row records one
// create or update the reconciler attempted, including dry runs and failed
// writes, with the exact field payload sent. The schema is embedded and
// versioned; a mismatched database must be removed before use.
package journal
