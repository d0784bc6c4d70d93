package scoring

import (
	"strings"

	"golang.org/x/text/width"
)

// normalize prepares an answer for comparison: trim surrounding
// whitespace, fold full-width alphanumerics to half-width, lowercase.
// Applied to both sides of every comparison; stored results keep the raw
// submitted string.
func normalize(s string) string {
	return strings.ToLower(width.Narrow.String(strings.TrimSpace(s)))
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = normalize(s)
	}
	return out
}
