package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/server/internal/core"
	"github.com/docqa/server/internal/core/ingest"
)

type noopStore struct{}

func (noopStore) Upsert(context.Context, []core.Chunk) error { return nil }
func (noopStore) DeleteAll(context.Context) error            { return nil }
func (noopStore) Count(context.Context) (int, error)         { return 0, nil }
func (noopStore) Search(context.Context, string, int, int, float64) ([]core.ScoredChunk, error) {
	return nil, nil
}

func newTestHandler(t *testing.T) *DocumentHandler {
	t.Helper()
	dir := t.TempDir()
	pipeline := ingest.NewPipeline(
		ingest.NewLoader(dir),
		ingest.NewSplitter(100, 20),
		noopStore{},
		ingest.NewTracker(),
		50,
	)
	return NewDocumentHandler(nil, pipeline, dir)
}

func TestVectorProgressReturnsSnapshot(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.VectorProgress(rec, httptest.NewRequest(http.MethodGet, "/api/documents/vector-progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Code int             `json:"code"`
		Data ingest.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Code)
	assert.Equal(t, ingest.StatusIdle, body.Data.Status)
}

func TestVectorAllStreamEndsWithTerminalSnapshot(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.VectorAllStream(rec, httptest.NewRequest(http.MethodGet, "/api/documents/vector-all-stream", nil))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var snapshots []ingest.Snapshot
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap ingest.Snapshot
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		snapshots = append(snapshots, snap)
	}
	require.NotEmpty(t, snapshots)
	assert.Equal(t, ingest.StatusCompleted, snapshots[len(snapshots)-1].Status)
}

func TestQueryIntFallsBack(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?page_num=3&bad=zero&neg=-1", nil)
	assert.Equal(t, 3, queryInt(r, "page_num", 1))
	assert.Equal(t, 1, queryInt(r, "missing", 1))
	assert.Equal(t, 10, queryInt(r, "neg", 10))
}

func TestRespondEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusConflict, "busy")

	assert.Equal(t, http.StatusConflict, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusConflict, env.Code)
	assert.Equal(t, "busy", env.Message)
}
