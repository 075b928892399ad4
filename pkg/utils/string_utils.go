package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims, collapses inner whitespace and converts to NFC so that
// "Azúcar" typed on different keyboards is stored the same way.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

var folder = cases.Fold()

// FoldName returns a case-folded key for comparing names.
func FoldName(s string) string {
	return folder.String(NormalizeName(s))
}
