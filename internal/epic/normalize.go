package epic

import (
	"strings"

	"github.com/zombor/epic-scan/internal/scanning"
)

// Separator replaces every character that is not an ASCII letter or digit
const Separator = " "

// Flatten concatenates every line's text followed by a single space,
// block-major then line-minor.
func Flatten(text *scanning.Text) string {
	if text == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range text.Blocks {
		for _, line := range block.Lines {
			b.WriteString(line.Text)
			b.WriteString(" ")
		}
	}
	return b.String()
}

// Normalize maps every rune outside [A-Za-z0-9] to a separator, folds to
// uppercase, collapses separator runs and trims the edges.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, raw)
	return strings.Join(strings.Fields(mapped), Separator)
}
