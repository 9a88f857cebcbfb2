// Package textutil provides the name normalisation shared by the CSV parser
// and the matchers.
//
// Names are compared caseless (Unicode case folding via golang.org/x/text)
// with surrounding and repeated whitespace collapsed. Display names from the
// exports are upper case; TitleCase converts them to the form stored in the
// base.
package textutil
