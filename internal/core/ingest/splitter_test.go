package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/server/internal/core"
)

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := NewSplitter(800, 150)
	chunks := s.Split([]core.Document{{Text: "hello world", Source: "a.txt"}})

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, "a.txt", chunks[0].Source)
	assert.Equal(t, 0, chunks[0].StartOffset)
}

func TestSplitSkipsWhitespaceOnlyDocuments(t *testing.T) {
	s := NewSplitter(800, 150)
	chunks := s.Split([]core.Document{
		{Text: "   \n\t  ", Source: "blank.txt"},
		{Text: "content", Source: "real.txt"},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "real.txt", chunks[0].Source)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("This is a sentence about nothing in particular. ")
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	s := NewSplitter(200, 40)
	chunks := s.Split([]core.Document{{Text: text, Source: "long.txt"}})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 200)
		assert.NotEqual(t, "", strings.TrimSpace(c.Text))
	}
}

func TestSplitOffsetsPointIntoSource(t *testing.T) {
	text := "First paragraph with some words.\n\nSecond paragraph with more words.\n\nThird one here. And a final sentence to push past the limit."
	s := NewSplitter(50, 10)
	chunks := s.Split([]core.Document{{Text: text, Source: "doc.txt"}})

	runes := []rune(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		n := utf8.RuneCountInString(c.Text)
		require.LessOrEqual(t, c.StartOffset+n, len(runes))
		assert.Equal(t, c.Text, string(runes[c.StartOffset:c.StartOffset+n]))
	}
}

func TestSplitCharacterFallback(t *testing.T) {
	text := strings.Repeat("a", 250)
	s := NewSplitter(100, 20)
	chunks := s.Split([]core.Document{{Text: text, Source: "raw.txt"}})

	// windows step by size-overlap: [0,100) [80,180) [160,250)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 80, chunks[1].StartOffset)
	assert.Equal(t, 160, chunks[2].StartOffset)
	assert.Equal(t, 90, utf8.RuneCountInString(chunks[2].Text))
}

func TestSplitCharacterFallbackOverlapsWindows(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("abcdefghij") // no separators anywhere
	}
	s := NewSplitter(100, 20)
	chunks := s.Split([]core.Document{{Text: b.String(), Source: "wall.txt"}})

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		overlap := prev.StartOffset + utf8.RuneCountInString(prev.Text) - cur.StartOffset
		assert.Equal(t, 20, overlap)
	}
}

func TestSplitOverlapCarriesTrailingText(t *testing.T) {
	text := "one. two. three. four. five. six. seven. eight. nine. ten."
	s := NewSplitter(20, 10)
	chunks := s.Split([]core.Document{{Text: text, Source: "n.txt"}})

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i-1].StartOffset, chunks[i].StartOffset)
	}
}

func TestSplitMeasuresRunesNotBytes(t *testing.T) {
	// Each rune is 3 bytes; byte-based sizing would split far earlier.
	text := strings.Repeat("好", 90)
	s := NewSplitter(100, 20)
	chunks := s.Split([]core.Document{{Text: text, Source: "cjk.txt"}})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "你好,世界.", CleanText("你好， 世 界。"))
	assert.Equal(t, "(abc):!?", CleanText("（abc）：！？"))
	assert.Equal(t, "", CleanText("   \n "))
	assert.Equal(t, "ab", CleanText("a　b"))
}
