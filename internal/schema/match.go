package schema

import "strings"

// NormalizeName folds a sheet name or header for comparison: lower case,
// surrounding whitespace removed and inner runs collapsed to one space.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Matches reports whether an actual sheet name refers to this sheet.
func (s SheetSchema) Matches(name string) bool {
	return matchesAny(name, s.CanonicalName, s.Aliases)
}

// Matches reports whether a header cell refers to this column.
func (c ColumnSchema) Matches(header string) bool {
	return matchesAny(header, c.CanonicalName, c.Aliases)
}

func matchesAny(actual, canonical string, aliases []string) bool {
	n := NormalizeName(actual)
	if n == "" {
		return false
	}
	if n == NormalizeName(canonical) {
		return true
	}
	for _, a := range aliases {
		if n == NormalizeName(a) {
			return true
		}
	}
	return false
}
