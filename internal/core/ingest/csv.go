package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/docqa/server/internal/core"
)

// loadCSVFile turns every data row into one document. The first row is the
// header; each cell renders as "header: value" with rows joined by
// newlines. Files that are not valid UTF-8, or that fail to parse as UTF-8,
// get one retry through a GBK decode.
func loadCSVFile(path string) ([]core.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	source := filepath.Base(path)

	if !utf8.Valid(raw) {
		decoded, derr := decodeGBK(raw)
		if derr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, derr)
		}
		raw = decoded
	}

	docs, err := parseCSV(raw, source)
	if err != nil {
		decoded, derr := decodeGBK(raw)
		if derr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if docs, derr = parseCSV(decoded, source); derr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return docs, nil
}

func parseCSV(raw []byte, source string) ([]core.Document, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	docs := make([]core.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		var lines []string
		for j, cell := range row {
			if j >= len(header) {
				break
			}
			lines = append(lines, fmt.Sprintf("%s: %s", strings.TrimSpace(header[j]), strings.TrimSpace(cell)))
		}
		text := strings.Join(lines, "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, core.Document{
			Text:   text,
			Source: source,
			Format: core.FormatCSV,
			Index:  i,
		})
	}
	return docs, nil
}

func decodeGBK(raw []byte) ([]byte, error) {
	return simplifiedchinese.GBK.NewDecoder().Bytes(raw)
}
