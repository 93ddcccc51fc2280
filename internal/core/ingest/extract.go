package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/docqa/server/internal/core"
)

// loadTextFile reads a plain-text or markdown file, retrying through a GBK
// decode when the bytes are not valid UTF-8.
func loadTextFile(path string, format core.Format) ([]core.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		decoded, derr := decodeGBK(raw)
		if derr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, derr)
		}
		raw = decoded
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []core.Document{{
		Text:   text,
		Source: filepath.Base(path),
		Format: format,
	}}, nil
}

// loadConvertedFile extracts text from binary formats (pdf, docx) through
// docconv. PDF output additionally goes through CleanText since extraction
// tends to leave full-width characters and stray spacing behind.
func loadConvertedFile(path string, format core.Format) ([]core.Document, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	text := res.Body
	if format == core.FormatPDF {
		text = CleanText(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []core.Document{{
		Text:   text,
		Source: filepath.Base(path),
		Format: format,
	}}, nil
}
