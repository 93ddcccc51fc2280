// Package ingest implements the document ingestion pipeline: directory
// loading with per-format adapters, recursive chunk splitting and batched
// vectorization with observable progress.
package ingest

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PDF extraction leaves full-width characters and layout whitespace behind;
// fold them before splitting.
var punctReplacer = strings.NewReplacer(
	"，", ",",
	"。", ".",
	"（", "(",
	"）", ")",
	"；", ";",
	"：", ":",
	"！", "!",
	"？", "?",
)

var spaceReplacer = strings.NewReplacer("　", "", " ", "")

// CleanText normalizes extracted text: NFKC width folding, removal of ASCII
// and ideographic spaces, and CJK punctuation folded to ASCII.
func CleanText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	cleaned := norm.NFKC.String(text)
	cleaned = spaceReplacer.Replace(cleaned)
	return punctReplacer.Replace(cleaned)
}
