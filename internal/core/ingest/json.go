package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docqa/server/internal/core"
)

// datasetKeys are the fields an instruction-tuning record must carry for
// the file to be rendered as prompt/answer text instead of raw JSON.
var datasetKeys = []string{"instruction", "input", "output"}

func loadJSONFile(path string) ([]core.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	source := filepath.Base(path)

	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return loadJSONLines(raw, source)
	}

	var elements []map[string]any
	switch v := top.(type) {
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				elements = append(elements, m)
			}
		}
	case map[string]any:
		elements = append(elements, v)
	default:
		return nil, nil
	}
	if len(elements) == 0 {
		return nil, nil
	}

	asDataset := isDatasetRecord(elements[0])
	docs := make([]core.Document, 0, len(elements))
	for i, el := range elements {
		var text string
		if asDataset {
			text = renderDatasetRecord(el)
		} else {
			text = prettyJSON(el)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, core.Document{
			Text:   text,
			Source: source,
			Format: core.FormatJSON,
			Index:  i,
		})
	}
	return docs, nil
}

// loadJSONLines treats the content as one JSON object per line. Lines that
// do not parse are skipped.
func loadJSONLines(raw []byte, source string) ([]core.Document, error) {
	var docs []core.Document
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			slog.Warn("skipping malformed jsonl line", "source", source, "line", line)
			continue
		}
		var rendered string
		if isDatasetRecord(record) {
			rendered = renderDatasetRecord(record)
		} else {
			rendered = prettyJSON(record)
		}
		if strings.TrimSpace(rendered) == "" {
			continue
		}
		docs = append(docs, core.Document{
			Text:   rendered,
			Source: source,
			Format: core.FormatJSONL,
			Index:  line - 1,
		})
	}
	if err := sc.Err(); err != nil {
		return docs, fmt.Errorf("scan %s: %w", source, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("parse %s: no valid json content", source)
	}
	return docs, nil
}

func isDatasetRecord(m map[string]any) bool {
	for _, key := range datasetKeys {
		if _, ok := m[key]; !ok {
			return false
		}
	}
	return true
}

// renderDatasetRecord flattens an instruction record into labeled sections.
// Empty fields are left out.
func renderDatasetRecord(m map[string]any) string {
	var sections []string
	appendField := func(label, key string) {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			sections = append(sections, label+" "+strings.TrimSpace(v))
		}
	}
	appendField("Instruction:", "instruction")
	appendField("Question:", "input")
	appendField("Answer:", "output")
	appendField("System:", "system")
	return strings.Join(sections, "\n\n")
}

func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
