// Package zeraki parses Zeraki Analytics mark-sheet exports into reconcile
// import rows.
//
// Columns are resolved by header name. Strict mode additionally requires the
// header row to equal the full export layout. Exam metadata (graduation class,
// test type, form, date) is carried in the file name written by the
// spreadsheet converter and is recovered with ParseExamFileName.
package zeraki
