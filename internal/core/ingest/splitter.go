package ingest

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/docqa/server/internal/core"
)

var defaultSeparators = []string{"\n\n", "\n", ".", "。", "!", "?", "？", "！", "；", ";"}

// Splitter cuts documents into overlapping chunks, preferring to break at
// the earliest separator in its list and falling back to fixed-size rune
// windows when no separator appears. All sizes are measured in runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// segment is a separator-bounded piece of a document. start is the rune
// offset of the piece in the original text; the separator stays attached to
// the end of the piece it terminates.
type segment struct {
	start   int
	text    string
	runeLen int
}

// Split chunks every document, skipping documents that contain only
// whitespace. Chunk offsets point at the first rune of the chunk in the
// source document.
func (s *Splitter) Split(docs []core.Document) []core.Chunk {
	var chunks []core.Chunk
	skipped := 0
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			skipped++
			continue
		}
		segs := s.segmentize(doc.Text, 0, s.separators)
		for _, c := range s.merge(segs) {
			chunks = append(chunks, core.Chunk{
				Text:        c.text,
				Source:      doc.Source,
				StartOffset: c.start,
			})
		}
	}
	if skipped > 0 {
		slog.Debug("skipped empty documents", "count", skipped)
	}
	return chunks
}

// segmentize recursively splits text at the first separator that occurs in
// it, recursing with the remaining separators on pieces that are still too
// large. Without any usable separator it falls back to fixed rune windows.
func (s *Splitter) segmentize(text string, base int, separators []string) []segment {
	var sep string
	var rest []string
	found := false
	for i, candidate := range separators {
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			found = true
			break
		}
	}
	if !found {
		return windowRunes(text, base, s.chunkSize, s.chunkOverlap)
	}

	var out []segment
	offset := base
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		n := utf8.RuneCountInString(part)
		if n > s.chunkSize {
			out = append(out, s.segmentize(part, offset, rest)...)
		} else {
			out = append(out, segment{start: offset, text: part, runeLen: n})
		}
		offset += n
	}
	return out
}

// windowRunes cuts separator-free text into fixed windows. Consecutive
// windows share overlap runes so chunk boundaries keep context, same as the
// separator path.
func windowRunes(text string, base, size, overlap int) []segment {
	runes := []rune(text)
	step := size - overlap
	if step < 1 {
		step = size
	}
	var out []segment
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, segment{start: base + i, text: string(runes[i:end]), runeLen: end - i})
		if end == len(runes) {
			break
		}
	}
	return out
}

// merge greedily packs segments into chunks of at most chunkSize runes,
// carrying up to chunkOverlap runes of trailing segments into the next
// chunk. Whitespace-only chunks are dropped and leading whitespace is
// trimmed with the offset advanced accordingly.
func (s *Splitter) merge(segs []segment) []segment {
	var out []segment
	var window []segment
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		var b strings.Builder
		for _, seg := range window {
			b.WriteString(seg.text)
		}
		if c, ok := trimSegment(window[0].start, b.String()); ok {
			out = append(out, c)
		}
	}

	for _, seg := range segs {
		if total+seg.runeLen > s.chunkSize && total > 0 {
			flush()
			for total > s.chunkOverlap || (total+seg.runeLen > s.chunkSize && total > 0) {
				total -= window[0].runeLen
				window = window[1:]
			}
		}
		window = append(window, seg)
		total += seg.runeLen
	}
	flush()
	return out
}

func trimSegment(start int, text string) (segment, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return segment{}, false
	}
	leading := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			break
		}
		leading++
	}
	return segment{start: start + leading, text: trimmed, runeLen: utf8.RuneCountInString(trimmed)}, true
}
