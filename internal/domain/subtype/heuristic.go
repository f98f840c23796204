// Package subtype derives PAM50 subtype assignments from supplementary
// annotation files of unknown tabular format.
//
// The publication files this handles were never standardized: delimiter,
// header names, and column order vary by source. Parsing is therefore
// heuristic end to end, and every helper here is a pure function over
// in-memory input so the guesses stay testable in isolation.
package subtype

import (
	"bytes"
	"strings"
)

// Header substrings that identify the two columns of interest. Ordering of
// the fallbacks matters: named matches win over the positional guess.
var (
	labelHints = []string{"pam50", "subtype", "molecular", "call"}
	idHints    = []string{"case", "sample", "barcode", "patient", "tumor"}
)

// htmlSignatures are document-start byte patterns of an HTML error page
// served where a data file was expected.
var htmlSignatures = [][]byte{
	[]byte("<!DOCTYPE"),
	[]byte("<!doctype"),
	[]byte("<html"),
	[]byte("<HTML"),
}

// IsHTML reports whether data starts with an HTML document signature.
// Leading whitespace is ignored.
func IsHTML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	for _, sig := range htmlSignatures {
		if bytes.HasPrefix(trimmed, sig) {
			return true
		}
	}
	return false
}

// Columns is the result of header matching: indexes into the header row.
type Columns struct {
	ID    int
	Label int
}

// MatchColumns scans header names for the identifier and label columns.
// Named substring matches take priority; when either side has no named
// match and at least two columns exist, the first column is taken as the
// identifier and the second as the label. ok is false when no assignment
// is possible.
func MatchColumns(headers []string) (cols Columns, ok bool) {
	id := matchFirst(headers, idHints)
	label := matchFirst(headers, labelHints)

	if id < 0 || label < 0 {
		if len(headers) < 2 {
			return Columns{}, false
		}
		return Columns{ID: 0, Label: 1}, true
	}
	return Columns{ID: id, Label: label}, true
}

// matchFirst returns the index of the first header containing any of the
// hints, case-insensitively, or -1.
func matchFirst(headers []string, hints []string) int {
	for i, h := range headers {
		lower := strings.ToLower(h)
		for _, hint := range hints {
			if strings.Contains(lower, hint) {
				return i
			}
		}
	}
	return -1
}

// SniffDelimiter guesses the field delimiter of a header line by counting
// candidate occurrences; the most frequent wins. Tab is preferred on ties
// since it is the dominant format for these files.
func SniffDelimiter(headerLine string) rune {
	candidates := []rune{'\t', ',', ';', ' '}
	best := '\t'
	bestCount := 0
	for _, c := range candidates {
		if n := strings.Count(headerLine, string(c)); n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}
