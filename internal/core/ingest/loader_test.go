package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/server/internal/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMergesFormatsInFixedOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rows.csv", "city,population\nParis,2100000\n")
	writeFile(t, dir, "notes.txt", "plain text body")
	writeFile(t, dir, "readme.md", "# markdown body")

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// text group first, csv last, files sorted inside a group
	assert.Equal(t, core.FormatText, docs[0].Format)
	assert.Equal(t, "notes.txt", docs[0].Source)
	assert.Equal(t, "readme.md", docs[1].Source)
	assert.Equal(t, core.FormatCSV, docs[2].Format)
}

func TestLoadSkipsUnsupportedAndBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "kept")
	writeFile(t, dir, "ignore.xml", "<a/>")
	writeFile(t, dir, "broken.csv", "only-a-header\n")

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept", docs[0].Text)
}

func TestLoadMissingDirectoryFails(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent")).Load(context.Background())
	assert.Error(t, err)
}

func TestLoadWalksNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, dir, "top.txt", "top")
	writeFile(t, filepath.Join(dir, "sub"), "deep.txt", "deep")

	docs, err := NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLoadJSONDatasetFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.json", `[
  {"instruction": "Summarize the text", "input": "a long text", "output": "a summary"},
  {"instruction": "Translate", "input": "", "output": "done", "system": "Be brief"}
]`)

	docs, err := loadJSONFile(filepath.Join(dir, "train.json"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "Instruction: Summarize the text\n\nQuestion: a long text\n\nAnswer: a summary", docs[0].Text)
	assert.Equal(t, 0, docs[0].Index)
	// empty input is omitted, system renders last
	assert.Equal(t, "Instruction: Translate\n\nAnswer: done\n\nSystem: Be brief", docs[1].Text)
	assert.Equal(t, 1, docs[1].Index)
}

func TestLoadJSONGenericArrayPrettyPrints(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.json", `[{"name": "a", "url": "http://x/?q=1&r=2"}]`)

	docs, err := loadJSONFile(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, `"name": "a"`)
	// html escaping stays off so urls survive intact
	assert.Contains(t, docs[0].Text, "q=1&r=2")
}

func TestLoadJSONScalarObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.json", `{"instruction": "Do it", "input": "now", "output": "ok"}`)

	docs, err := loadJSONFile(filepath.Join(dir, "one.json"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Instruction: Do it\n\nQuestion: now\n\nAnswer: ok", docs[0].Text)
}

func TestLoadJSONLinesFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stream.json", `{"instruction": "one", "input": "", "output": "1"}
not json at all
{"instruction": "two", "input": "", "output": "2"}`)

	docs, err := loadJSONFile(filepath.Join(dir, "stream.json"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, core.FormatJSONL, docs[0].Format)
	assert.Equal(t, "Instruction: one\n\nAnswer: 1", docs[0].Text)
	assert.Equal(t, "Instruction: two\n\nAnswer: 2", docs[1].Text)
}

func TestLoadCSVRowPerDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cities.csv", "city,country\nParis,France\nOsaka,Japan\n")

	docs, err := loadCSVFile(filepath.Join(dir, "cities.csv"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "city: Paris\ncountry: France", docs[0].Text)
	assert.Equal(t, "city: Osaka\ncountry: Japan", docs[1].Text)
	assert.Equal(t, 1, docs[1].Index)
}

func TestLoadCSVGBKFallback(t *testing.T) {
	// GBK bytes for 城市 (city header) and 北京 (row value)
	gbk := []byte{0xb3, 0xc7, 0xca, 0xd0, '\n', 0xb1, 0xb1, 0xbe, 0xa9, '\n'}
	dir := t.TempDir()
	path := filepath.Join(dir, "gbk.csv")
	require.NoError(t, os.WriteFile(path, gbk, 0o644))

	docs, err := loadCSVFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "城市: 北京", docs[0].Text)
}
