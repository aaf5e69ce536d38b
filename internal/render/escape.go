package render

import (
	"strings"
	"unicode/utf16"
)

// markdownV2Specials is the set of characters that must be escaped in
// Telegram MarkdownV2, plus the backslash itself.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!\\"

func isEscapable(r rune) bool {
	return r < 0x80 && strings.ContainsRune(markdownV2Specials, r)
}

// EscapeMarkdownV2 escapes every MarkdownV2 special character. It is
// idempotent: a backslash already followed by a special character is kept as
// an escape pair, so escaping escaped text changes nothing.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) && isEscapable(runes[i+1]) {
			b.WriteRune(r)
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		if isEscapable(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// textLength counts UTF-16 code units, the unit Telegram measures message
// length in. Characters outside the BMP count twice.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// truncateEscaped returns the longest prefix of escaped text, made of whole
// escape tokens, whose length is at most limit UTF-16 units. An escape pair
// is one token, so the result never ends on a dangling backslash.
func truncateEscaped(escaped string, limit int) string {
	if textLength(escaped) <= limit {
		return escaped
	}
	runes := []rune(escaped)
	end, used := 0, 0
	for end < len(runes) {
		width, units := 1, utf16.RuneLen(runes[end])
		if runes[end] == '\\' && end+1 < len(runes) {
			width = 2
			units += utf16.RuneLen(runes[end+1])
		}
		if used+units > limit {
			break
		}
		end += width
		used += units
	}
	return string(runes[:end])
}
