package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFileNameBytes keeps staged names under common filesystem limits with
// room for a prefix.
const maxFileNameBytes = 200

// SanitizeFileName turns a caller-supplied filename into a single safe path
// element. Separators and wildcard characters become dashes, quoting and
// control characters are dropped and leading dots are stripped. Names that
// sanitize to nothing return fallback.
func SanitizeFileName(name, fallback string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			b.WriteByte('-')
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(strings.TrimLeft(b.String(), "."))
	for len(clean) > maxFileNameBytes {
		_, size := utf8.DecodeLastRuneInString(clean)
		clean = clean[:len(clean)-size]
	}
	if clean == "" {
		return fallback
	}
	return clean
}
