package lead

import (
	"strings"
	"unicode/utf8"
)

// HeaderResolution describes where the email column lives.
type HeaderResolution struct {
	IsValid          bool
	EmailColumnIndex int // -1 when invalid
	Reason           string
}

// ResolveHeaders locates the email column: the first header containing
// "email", case-insensitively.
// PRE: none
// POST: IsValid implies 0 <= EmailColumnIndex < len(headers)
func ResolveHeaders(headers []string) HeaderResolution {
	if len(headers) == 0 {
		return HeaderResolution{EmailColumnIndex: -1, Reason: ReasonNoHeaders}
	}
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h), "email") {
			return HeaderResolution{IsValid: true, EmailColumnIndex: i}
		}
	}
	return HeaderResolution{EmailColumnIndex: -1, Reason: ReasonNoEmailColumn}
}

// StandardizeHeader derives a camelCase record key: the header is lowercased,
// every run of characters outside [a-z0-9] is dropped and the character after
// the run is upper-cased. "First Name" -> "firstName", "E-mail" -> "eMail".
// Different headers may collide; callers do not resolve that.
func StandardizeHeader(header string) string {
	lower := strings.ToLower(header)
	var b strings.Builder
	b.Grow(len(lower))
	inRun := false
	for i := 0; i < len(lower); {
		r, size := utf8.DecodeRuneInString(lower[i:])
		i += size
		if !isKeyChar(r) {
			inRun = true
			continue
		}
		if inRun {
			r = toUpperASCII(r)
			inRun = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isKeyChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func toUpperASCII(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
