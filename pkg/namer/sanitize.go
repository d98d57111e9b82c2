package namer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// decompose strips combining marks, so "Café" transliterates to "Cafe"
// instead of being dropped entirely.
var decompose = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize converts s into a portable file name component:
// accented characters are transliterated, the remaining non-ASCII,
// control characters and path separators are removed.
func Sanitize(s string) string {
	flat, _, err := transform.String(decompose, s)
	if err != nil {
		flat = s
	}

	var b strings.Builder
	for _, r := range flat {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			// drop control characters
		case r > unicode.MaxASCII:
			// drop what transliteration could not flatten
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
