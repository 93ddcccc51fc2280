package core

import "context"

// Format identifies which adapter produced a document.
type Format string

// Document formats the loader understands.
const (
	FormatText  Format = "text"
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// Document is a pipeline-internal text record produced by a format adapter.
// It is consumed by the splitter and discarded; the persisted document entity
// lives in internal/models.
type Document struct {
	Text   string
	Source string // originating file path
	Format Format
	Index  int // element index within multi-record sources (json array, csv rows)
}

// Chunk is a bounded slice of document text with provenance, the unit of
// vectorization. StartOffset is the rune offset into the originating
// document's text.
type Chunk struct {
	Text        string
	Source      string
	StartOffset int
}

// ScoredChunk is a retrieval result.
type ScoredChunk struct {
	Chunk
	Score float64
}

// VectorStore is the retrieval index. Upsert embeds and stores chunks,
// DeleteAll clears the whole collection, Search returns k results picked from
// the top fetchK candidates by MMR re-ranking (lambda 1 = pure relevance,
// 0 = maximum diversity).
type VectorStore interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	DeleteAll(ctx context.Context) error
	Search(ctx context.Context, query string, k, fetchK int, lambda float64) ([]ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}
