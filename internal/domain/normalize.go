package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds case, strips diacritics and collapses whitespace so
// "Sri  Potti Sriramulu Nellore" and "sri potti sriramulu nellore" compare equal.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// EntityKey is the lookup key "{district}|{state}" used for duplicate
// detection and population lookups. State-level keys leave district empty.
func EntityKey(district, state string) string {
	return NormalizeName(district) + "|" + NormalizeName(state)
}
