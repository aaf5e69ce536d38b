package channel

import "strings"

const markdownV2Escapable = "_*[]()~`>#+-=|{}.!\\"

// PlainText degrades a MarkdownV2 chunk into text that needs no parsing.
// Escape pairs become their literal character, bold and code markers are
// dropped, and everything outside printable ASCII, newline, carriage return
// and tab is removed.
func PlainText(formatted string) string {
	var b strings.Builder
	b.Grow(len(formatted))

	for i := 0; i < len(formatted); i++ {
		c := formatted[i]
		switch {
		case c == '\\' && i+1 < len(formatted) && strings.IndexByte(markdownV2Escapable, formatted[i+1]) >= 0:
			i++
			b.WriteByte(formatted[i])
		case c == '*' || c == '`':
		case c >= 0x20 && c <= 0x7E, c == '\n', c == '\r', c == '\t':
			b.WriteByte(c)
		}
	}
	return b.String()
}
