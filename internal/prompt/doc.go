// Package prompt is the operator-facing half of an import: numbered menus and
// yes/no questions.
//
// Every answer comes back as a Response whose Status is Selected, Declined or
// Cancelled. Cancelled is a control signal rather than an error; callers stop
// their run and keep what was already committed. Terminal reads answers from
// an io.Reader, renders menus with go-pretty, and highlights questions with
// fatih/color when the output is a TTY.
package prompt
