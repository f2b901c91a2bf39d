package captions

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// One scan, non-overlapping: the five XML named entities plus decimal
// and hex character references. Anything else ("&nbsp;", stray "&") is
// left alone.
var reEntity = regexp.MustCompile(`&(amp|lt|gt|quot|apos|#[0-9]+|#[xX][0-9a-fA-F]+);`)

// DecodeEntities performs a single left-to-right decoding pass over s.
// Payloads from the origin are frequently double-encoded ("It&amp;#39;s"),
// so the parser applies this twice; each application decodes exactly one
// layer, which keeps the function's behavior predictable on its own.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return reEntity.ReplaceAllStringFunc(s, func(m string) string {
		body := m[1 : len(m)-1]
		switch body {
		case "amp":
			return "&"
		case "lt":
			return "<"
		case "gt":
			return ">"
		case "quot":
			return `"`
		case "apos":
			return "'"
		}

		digits := body[1:]
		base := 10
		if digits[0] == 'x' || digits[0] == 'X' {
			digits = digits[1:]
			base = 16
		}
		n, err := strconv.ParseInt(digits, base, 32)
		if err != nil || n <= 0 || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})
}
