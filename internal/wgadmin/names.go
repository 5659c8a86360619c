package wgadmin

import "regexp"

// maxNameLen caps sanitized peer names. Names become filenames under the
// clients directory and marker comments in the interface file.
const maxNameLen = 32

var disallowedNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName maps a raw operator-supplied peer name onto the safe
// charset [A-Za-z0-9_-], replacing every other rune with an underscore
// and truncating to 32 bytes. Deterministic: two raw names differing
// only in disallowed characters collide, and the lifecycle treats that
// collision as a duplicate.
func SanitizeName(raw string) string {
	s := disallowedNameChars.ReplaceAllString(raw, "_")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	return s
}
