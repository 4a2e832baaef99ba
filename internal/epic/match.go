package epic

import "regexp"

var (
	// RE2's \b is ASCII-only, which is exactly the boundary wanted after normalization
	boundedPattern = regexp.MustCompile(`\b[A-Z]{3}[0-9]{7}\b`)
	exactPattern   = regexp.MustCompile(`^[A-Z]{3}[0-9]{7}$`)
)

// Find returns the leftmost bounded identifier in already normalized text
func Find(normalized string) (string, bool) {
	id := boundedPattern.FindString(normalized)
	return id, id != ""
}

// FindIdentifier normalizes raw OCR text and returns the first identifier in it
func FindIdentifier(raw string) (string, bool) {
	return Find(Normalize(raw))
}

// Valid reports whether s is exactly one identifier
func Valid(s string) bool {
	return exactPattern.MatchString(s)
}
