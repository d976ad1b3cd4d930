package faces

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics removes diacritical marks (e.g., "Jiří" -> "Jiri").
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// normalizeLabel folds a face label for loose comparison: no diacritics,
// lowercase, dashes and underscores as spaces, collapsed whitespace.
func normalizeLabel(label string) string {
	label = strings.ToLower(foldDiacritics(label))
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}

// resolveLabel maps label to an entry of available. An exact match wins;
// otherwise the normalized forms must match exactly one entry.
func resolveLabel(available []string, label string) (string, bool) {
	for _, a := range available {
		if a == label {
			return a, true
		}
	}
	want := normalizeLabel(label)
	if want == "" {
		return "", false
	}
	match := ""
	for _, a := range available {
		if normalizeLabel(a) == want {
			if match != "" {
				return "", false
			}
			match = a
		}
	}
	return match, match != ""
}
