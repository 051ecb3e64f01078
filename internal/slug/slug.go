// Package slug derives URL-safe identifiers from names and allocates them
// uniquely against a store that enforces a unique constraint.
package slug

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases name and joins its ASCII words with hyphens.
// Accented letters lose their marks, other non-ASCII characters are dropped.
// A name without any alphanumeric character yields "".
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-', r == ' ', r == '\t', r == '\n', r == '\r', r == '\f', r == '\v':
			b.WriteByte('-')
		}
	}

	// collapse separator runs
	var out strings.Builder
	prevDash := false
	for _, r := range b.String() {
		if r == '-' {
			if !prevDash {
				out.WriteRune(r)
			}
			prevDash = true
			continue
		}
		prevDash = false
		out.WriteRune(r)
	}

	return strings.Trim(out.String(), "-_")
}
