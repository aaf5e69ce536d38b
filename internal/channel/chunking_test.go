package channel

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSplitIntoChunks_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()
	got := SplitIntoChunks("short line", 4000)
	if len(got) != 1 || got[0] != "short line" {
		t.Errorf("SplitIntoChunks = %q, want [\"short line\"]", got)
	}
}

func TestSplitIntoChunks_FastPathTrims(t *testing.T) {
	t.Parallel()
	got := SplitIntoChunks("  padded \n\n", 4000)
	if len(got) != 1 || got[0] != "padded" {
		t.Errorf("SplitIntoChunks = %q, want [\"padded\"]", got)
	}
}

func TestSplitIntoChunks_EmptyInput(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "\n\n\n"} {
		if got := SplitIntoChunks(in, 10); len(got) != 0 {
			t.Errorf("SplitIntoChunks(%q) = %q, want no chunks", in, got)
		}
	}
}

func TestSplitIntoChunks_OverlongWordEmittedWhole(t *testing.T) {
	t.Parallel()
	word := strings.Repeat("a", 4500)
	got := SplitIntoChunks(word, 4000)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != word {
		t.Errorf("chunk length = %d, want the whole 4500-character word", len(got[0]))
	}
}

func TestSplitIntoChunks_FiftyLines(t *testing.T) {
	t.Parallel()
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = strings.Repeat(string(rune('a'+i%26)), 100)
	}
	text := strings.Join(lines, "\n")

	got := SplitIntoChunks(text, 4000)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	first := strings.Split(got[0], "\n")
	second := strings.Split(got[1], "\n")
	if len(first) != 39 || len(second) != 11 {
		t.Errorf("lines per chunk = %d/%d, want 39/11", len(first), len(second))
	}
	if got[0]+"\n"+got[1] != text {
		t.Error("chunks joined by newline should reproduce the input")
	}
}

func TestSplitIntoChunks_LongLineSplitsOnSpaces(t *testing.T) {
	t.Parallel()
	text := "intro\n" + strings.Repeat("word ", 10) + "\noutro"

	got := SplitIntoChunks(text, 12)
	want := []string{"intro", "word word", "word word", "word word", "word word", "word word", "outro"}
	if len(got) != len(want) {
		t.Fatalf("SplitIntoChunks = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitIntoChunks_KeepsLineBreakAfterSplitLine(t *testing.T) {
	t.Parallel()
	text := "aaaa bbbb cccc\nd"

	got := SplitIntoChunks(text, 10)
	want := []string{"aaaa bbbb", "cccc\nd"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SplitIntoChunks = %q, want %q", got, want)
	}
}

func TestSplitIntoChunks_CountsUTF16Units(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		limit      int
		wantChunks int
	}{
		// Ten 3-byte runes are 30 bytes but ten units.
		{name: "bmp fits", text: strings.Repeat("€", 10), limit: 10, wantChunks: 1},
		{name: "emoji count twice", text: strings.TrimSpace(strings.Repeat("😀 ", 6)), limit: 10, wantChunks: 2},
		{name: "emoji at the limit", text: strings.Repeat("😀", 5), limit: 10, wantChunks: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitIntoChunks(tt.text, tt.limit)
			if len(got) != tt.wantChunks {
				t.Fatalf("SplitIntoChunks = %q, want %d chunks", got, tt.wantChunks)
			}
			for _, c := range got {
				if n := TextLength(c); n > tt.limit {
					t.Errorf("chunk %q is %d units, limit %d", c, n, tt.limit)
				}
			}
		})
	}
}

func TestSplitIntoChunks_EmojiBodyFitsTelegram(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("😀", 40)
	text := strings.TrimSpace(strings.Repeat(line+"\n", 100))
	for i, c := range SplitIntoChunks(text, DefaultChunkSize) {
		if n := TextLength(c); n > DefaultChunkSize {
			t.Errorf("chunk %d is %d units, limit %d", i, n, DefaultChunkSize)
		}
	}
}

func TestTextLength(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]int{"": 0, "abc": 3, "é€": 2, "😀": 2, "a😀b": 4} {
		if got := TextLength(in); got != want {
			t.Errorf("TextLength(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSplitIntoChunks_DefaultLimit(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x ", DefaultChunkSize)
	for _, c := range SplitIntoChunks(text, 0) {
		if n := TextLength(c); n > DefaultChunkSize {
			t.Errorf("chunk of %d units exceeds default limit", n)
		}
	}
}

func chunkInput() *rapid.Generator[string] {
	word := rapid.StringMatching(`[a-zé€😀]{0,12}`)
	line := rapid.Custom(func(t *rapid.T) string {
		return strings.Join(rapid.SliceOfN(word, 0, 8).Draw(t, "words"), " ")
	})
	return rapid.Custom(func(t *rapid.T) string {
		return strings.Join(rapid.SliceOfN(line, 0, 20).Draw(t, "lines"), "\n")
	})
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestSplitIntoChunks_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		text := chunkInput().Draw(t, "text")
		limit := rapid.IntRange(1, 60).Draw(t, "limit")

		chunks := SplitIntoChunks(text, limit)

		longestWord := 0
		for _, w := range strings.Fields(text) {
			longestWord = max(longestWord, TextLength(w))
		}

		for i, c := range chunks {
			if c == "" || c != strings.TrimSpace(c) {
				t.Fatalf("chunk %d is empty or untrimmed: %q", i, c)
			}
			n := TextLength(c)
			if n > limit && n > longestWord {
				t.Fatalf("chunk %d is %d units, limit %d, longest word %d", i, n, limit, longestWord)
			}
			if n > limit && strings.ContainsAny(c, " \n") {
				t.Fatalf("over-length chunk %d is not a single word: %q", i, c)
			}
		}

		if got, want := stripSpace(strings.Join(chunks, "\n")), stripSpace(text); got != want {
			t.Fatalf("chunks lost or reordered content:\n got %q\nwant %q", got, want)
		}
	})
}
