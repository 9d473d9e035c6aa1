package xml

import (
	"strings"
	"unicode/utf8"
)

// Sanitize trims everything outside the outermost markup delimiters and drops
// runes outside the allow-list: TAB, LF, CR and printable code points, with
// C1 controls and the U+FFFE/U+FFFF non-characters excluded.
func Sanitize(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")

	start := strings.IndexByte(s, '<')
	end := strings.LastIndexByte(s, '>')
	if start < 0 || end < start {
		return ""
	}
	s = s[start : end+1]

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowedRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0x7F && r <= 0x9F:
		return false
	case r == 0xFFFE || r == 0xFFFF:
		return false
	case r >= 0xD800 && r <= 0xDFFF:
		return false
	default:
		return r <= utf8.MaxRune
	}
}
