// Command kgsa imports Zeraki roster and exam exports into the school's
// Airtable base, asking the operator to settle every ambiguous match and
// every field change before anything is written.
package main
