// Package airtable talks to the remote tabular database over its REST API.
//
// Client wraps the record and metadata endpoints. Store adapts a Client to
// the reconcile package's store contract, coercing weakly typed field values
// to the column types reported by the base schema. Export dumps every table
// of a base to JSON files for offline inspection.
package airtable
