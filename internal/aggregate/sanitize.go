// ABOUTME: Lossy text sanitizer for single-byte report output.
// ABOUTME: Replaces runes outside ISO-8859-1 with '?' and counts the substitutions.
package aggregate

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Placeholder replaces characters the report encoding cannot represent.
const Placeholder = '?'

// Sanitize returns s with every rune outside ISO-8859-1 replaced by
// Placeholder, and the number of replacements made. Invalid UTF-8 bytes
// count as unencodable.
func Sanitize(s string) (string, int) {
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if _, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(Placeholder)
		n++
	}
	return b.String(), n
}
