// Package render turns provider data into Telegram MarkdownV2 text: it
// sanitizes untrusted HTML bodies and lays out inboxes, messages and domain
// lists.
package render

import (
	"regexp"
	"strings"
)

// DefaultMaxLength caps a sanitized body, in UTF-16 units, before the truncation
// notice is appended.
const DefaultMaxLength = 3000

// TruncationNotice is appended, already escaped, to bodies cut at the cap.
const TruncationNotice = "\\.\\.\\.\n\n\\[Message truncated due to length\\]"

var (
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script\s*>`)
	styleBlock  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style\s*>`)
	anyTag      = regexp.MustCompile(`<[^>]*>`)
	spaceRun    = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	blankLines  = regexp.MustCompile(`\n\s*\n`)
)

var entityDecoder = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"&mdash;", "—",
	"&ndash;", "–",
	"&hellip;", "...",
	"&copy;", "©",
	"&reg;", "®",
	"&trade;", "™",
)

// Sanitizer converts untrusted HTML into escaped MarkdownV2 plain text.
// The zero value uses DefaultMaxLength.
type Sanitizer struct {
	MaxLength int
}

// Sanitize runs the default Sanitizer.
func Sanitize(html string) string {
	return Sanitizer{}.Sanitize(html)
}

// SanitizeInline runs the default Sanitizer's inline variant.
func SanitizeInline(text string) string {
	return Sanitizer{}.SanitizeInline(text)
}

func (s Sanitizer) maxLength() int {
	if s.MaxLength > 0 {
		return s.MaxLength
	}
	return DefaultMaxLength
}

// Sanitize strips script and style blocks and every other tag, decodes a
// fixed set of named entities, drops control and special code points,
// collapses whitespace, escapes MarkdownV2 and caps the length. Unknown and
// numeric entities are left untouched. The result is always valid UTF-8.
func (s Sanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}

	text := scriptBlock.ReplaceAllString(html, "")
	text = styleBlock.ReplaceAllString(text, "")
	text = anyTag.ReplaceAllString(text, "")
	text = entityDecoder.Replace(text)

	return s.finish(text)
}

// SanitizeInline prepares a single-line header value (sender, subject,
// timestamp, file name). Markup is not interpreted: angle brackets survive
// as literal characters.
func (s Sanitizer) SanitizeInline(text string) string {
	if text == "" {
		return ""
	}
	return s.finish(text)
}

func (s Sanitizer) finish(text string) string {
	text = stripControls(text)
	text = spaceRun.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = EscapeMarkdownV2(text)

	limit := s.maxLength()
	if textLength(text) > limit {
		text = truncateEscaped(text, limit) + TruncationNotice
	}
	return text
}

// stripControls removes C0 and C1 controls, maps General Punctuation to a
// space and deletes the Specials block. Invalid bytes decode as U+FFFD and
// are deleted with it.
func stripControls(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r <= 0x1F, r >= 0x7F && r <= 0x9F:
			return -1
		case r >= 0x2000 && r <= 0x206F:
			return ' '
		case r >= 0xFFF0 && r <= 0xFFFF:
			return -1
		}
		return r
	}, text)
}
