package channel

import (
	"strings"
	"unicode/utf16"
)

// DefaultChunkSize is the largest chunk, in UTF-16 code units, sent as one
// message. Telegram rejects texts over 4096 units.
const DefaultChunkSize = 4000

// SplitIntoChunks splits text into ordered chunks of at most maxLength UTF-16
// code units, the unit Telegram counts in.
//
// Lines are accumulated until the next one would not fit, then the
// accumulator is flushed. A line longer than maxLength is split on spaces.
// A single word longer than maxLength cannot be split on a boundary and is
// emitted whole, so that chunk exceeds the limit. Every chunk is trimmed and
// non-empty. A maxLength <= 0 uses DefaultChunkSize.
func SplitIntoChunks(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultChunkSize
	}
	if TextLength(text) <= maxLength {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var (
		chunks []string
		acc    strings.Builder
		accLen int
	)
	flush := func() {
		if s := strings.TrimSpace(acc.String()); s != "" {
			chunks = append(chunks, s)
		}
		acc.Reset()
		accLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := TextLength(line)

		if accLen+lineLen+1 <= maxLength {
			acc.WriteString(line)
			acc.WriteByte('\n')
			accLen += lineLen + 1
			continue
		}

		flush()

		if lineLen <= maxLength {
			acc.WriteString(line)
			acc.WriteByte('\n')
			accLen = lineLen + 1
			continue
		}

		for _, word := range strings.Split(line, " ") {
			wordLen := TextLength(word)
			if accLen+wordLen+1 > maxLength {
				flush()
			}
			acc.WriteString(word)
			acc.WriteByte(' ')
			accLen += wordLen + 1
		}

		// Keep the line break that followed the split line.
		tail := strings.TrimSuffix(acc.String(), " ")
		acc.Reset()
		acc.WriteString(tail)
		acc.WriteByte('\n')
	}

	flush()
	return chunks
}

// TextLength returns the length of s in UTF-16 code units. Characters
// outside the Basic Multilingual Plane, such as most emoji, count as two.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
