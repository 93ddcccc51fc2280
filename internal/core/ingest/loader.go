package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docqa/server/internal/core"
)

// loadOrder fixes the order in which format groups are merged so repeated
// runs over the same directory produce the same document sequence.
var loadOrder = []core.Format{
	core.FormatText,
	core.FormatPDF,
	core.FormatDocx,
	core.FormatJSON,
	core.FormatCSV,
}

// Loader walks a storage directory and extracts documents from every file
// with a supported extension. Format groups load concurrently; files inside
// a group load in sorted path order.
type Loader struct {
	dir string
	log *slog.Logger
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, log: slog.Default().With("component", "loader")}
}

// Load reads the whole directory tree. An unreadable directory is an error;
// a file that fails to extract is logged and skipped.
func (l *Loader) Load(ctx context.Context) ([]core.Document, error) {
	groups, err := l.collect()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	byFormat := make(map[core.Format][]core.Document, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	for format, paths := range groups {
		g.Go(func() error {
			docs := l.loadGroup(ctx, format, paths)
			mu.Lock()
			byFormat[format] = docs
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Document
	for _, format := range loadOrder {
		out = append(out, byFormat[format]...)
	}
	l.log.Info("loaded documents", "dir", l.dir, "count", len(out))
	return out, nil
}

func (l *Loader) collect() (map[core.Format][]string, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return nil, fmt.Errorf("storage dir %s: %w", l.dir, err)
	}
	groups := make(map[core.Format][]string)
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		format, ok := formatForExt(strings.ToLower(filepath.Ext(path)))
		if !ok {
			return nil
		}
		groups[format] = append(groups[format], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.dir, err)
	}
	for _, paths := range groups {
		sort.Strings(paths)
	}
	return groups, nil
}

func (l *Loader) loadGroup(ctx context.Context, format core.Format, paths []string) []core.Document {
	var docs []core.Document
	for _, path := range paths {
		if ctx.Err() != nil {
			return docs
		}
		loaded, err := l.loadFile(path, format)
		if err != nil {
			l.log.Warn("skipping file", "path", path, "error", err)
			continue
		}
		docs = append(docs, loaded...)
	}
	return docs
}

func (l *Loader) loadFile(path string, format core.Format) ([]core.Document, error) {
	switch format {
	case core.FormatText:
		return loadTextFile(path, format)
	case core.FormatPDF, core.FormatDocx:
		return loadConvertedFile(path, format)
	case core.FormatJSON:
		return loadJSONFile(path)
	case core.FormatCSV:
		return loadCSVFile(path)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func formatForExt(ext string) (core.Format, bool) {
	switch ext {
	case ".txt", ".md":
		return core.FormatText, true
	case ".pdf":
		return core.FormatPDF, true
	case ".docx":
		return core.FormatDocx, true
	case ".json", ".jsonl":
		return core.FormatJSON, true
	case ".csv":
		return core.FormatCSV, true
	default:
		return "", false
	}
}
