package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for label comparison: NFKC, case fold, trimmed and
// with internal whitespace runs collapsed to one space.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s) // a Caser is stateful, never share it
	return strings.Join(strings.Fields(s), " ")
}

// Compact is Normalize with all whitespace removed.
func Compact(s string) string {
	return strings.Join(strings.Fields(Normalize(s)), "")
}
