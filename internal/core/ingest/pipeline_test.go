package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/server/internal/core"
)

// fakeStore records index operations in order.
type fakeStore struct {
	calls     []string
	batches   [][]core.Chunk
	upsertErr error
	deleteErr error
}

func (f *fakeStore) Upsert(ctx context.Context, chunks []core.Chunk) error {
	f.calls = append(f.calls, "upsert")
	f.batches = append(f.batches, chunks)
	return f.upsertErr
}

func (f *fakeStore) DeleteAll(ctx context.Context) error {
	f.calls = append(f.calls, "delete")
	return f.deleteErr
}

func (f *fakeStore) Search(ctx context.Context, query string, k, fetchK int, lambda float64) ([]core.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) { return 0, nil }

func newTestPipeline(t *testing.T, store core.VectorStore, batchSize int, files map[string]string) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	return NewPipeline(NewLoader(dir), NewSplitter(100, 20), store, NewTracker(), batchSize)
}

func TestRunSyncClearsIndexBeforeUpserting(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, store, 50, map[string]string{"a.txt": "some document body"})

	require.NoError(t, p.RunSync(context.Background()))

	require.GreaterOrEqual(t, len(store.calls), 2)
	assert.Equal(t, "delete", store.calls[0])
	assert.Equal(t, "upsert", store.calls[1])

	snap := p.Tracker().Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, snap.Total, snap.Current)
	assert.InDelta(t, 100.0, snap.Progress, 0.01)
}

func TestRunSyncBatchesChunks(t *testing.T) {
	// 7 chunks with batch size 3 gives batches of 3, 3, 1
	var b strings.Builder
	for i := 0; i < 7; i++ {
		b.WriteString(strings.Repeat("x", 90))
		b.WriteString("\n\n")
	}
	store := &fakeStore{}
	p := newTestPipeline(t, store, 3, map[string]string{"big.txt": b.String()})

	require.NoError(t, p.RunSync(context.Background()))
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 3)
	assert.Len(t, store.batches[1], 3)
	assert.Len(t, store.batches[2], 1)

	snap := p.Tracker().Snapshot()
	assert.Equal(t, 7, snap.Total)
	assert.Equal(t, 3, snap.BatchTotal)
	assert.Equal(t, 3, snap.BatchCurrent)
}

func TestRunSyncTwiceRebuildsIdentically(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, store, 50, map[string]string{
		"a.txt": "first document body",
		"b.txt": "second document body",
	})

	require.NoError(t, p.RunSync(context.Background()))
	first := p.Tracker().Snapshot()
	require.Equal(t, StatusCompleted, first.Status)

	require.NoError(t, p.RunSync(context.Background()))
	second := p.Tracker().Snapshot()
	require.Equal(t, StatusCompleted, second.Status)

	// unchanged corpus: same chunk count, and each run clears before it writes
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, []string{"delete", "upsert", "delete", "upsert"}, store.calls)
	assert.Equal(t, store.batches[0], store.batches[1])
}

func TestRunSyncInstructionDatasetEndToEnd(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, store, 50, map[string]string{
		"train.json": `[{"instruction": "Summarize", "input": "the text", "output": "a summary"}]`,
	})

	require.NoError(t, p.RunSync(context.Background()))

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 1)
	assert.Equal(t, "Instruction: Summarize\n\nQuestion: the text\n\nAnswer: a summary",
		store.batches[0][0].Text)

	snap := p.Tracker().Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.Current)
	assert.Equal(t, 1, snap.BatchTotal)
	assert.Equal(t, 1, snap.BatchCurrent)
	assert.InDelta(t, 100.0, snap.Progress, 0.01)
}

// observingStore samples the tracker's current counter at every upsert.
type observingStore struct {
	fakeStore
	tracker *Tracker
	seen    []int
}

func (o *observingStore) Upsert(ctx context.Context, chunks []core.Chunk) error {
	o.seen = append(o.seen, o.tracker.Snapshot().Current)
	return o.fakeStore.Upsert(ctx, chunks)
}

func TestRunSyncProgressIsMonotonic(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(strings.Repeat("x", 90))
		b.WriteString("\n\n")
	}
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", b.String())

	tracker := NewTracker()
	store := &observingStore{tracker: tracker}
	p := NewPipeline(NewLoader(dir), NewSplitter(100, 20), store, tracker, 2)

	require.NoError(t, p.RunSync(context.Background()))

	// current advances only after each batch commits, never backwards
	require.Equal(t, []int{0, 2, 4}, store.seen)
	snap := tracker.Snapshot()
	assert.Equal(t, 5, snap.Current)
	assert.Equal(t, 5, snap.Total)
}

func TestRunSyncEmptyStorageCompletes(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, store, 50, nil)

	require.NoError(t, p.RunSync(context.Background()))
	snap := p.Tracker().Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.Progress)
	// the index is still cleared so stale chunks do not linger
	assert.Equal(t, []string{"delete"}, store.calls)
}

func TestRunSyncUpsertFailureKeepsPartialProgress(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("embed quota exceeded")}
	p := newTestPipeline(t, store, 50, map[string]string{"a.txt": "some document body"})

	err := p.RunSync(context.Background())
	require.Error(t, err)

	snap := p.Tracker().Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.Error, "embed quota exceeded")
	assert.Equal(t, 0, snap.Current)
	assert.NotZero(t, snap.Total)
}

func TestRunSyncMissingDirectoryFails(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(NewLoader("/nonexistent/docqa-test-dir"), NewSplitter(100, 20), store, NewTracker(), 50)

	require.Error(t, p.RunSync(context.Background()))
	snap := p.Tracker().Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Empty(t, store.calls)
}

func TestRunSyncRejectsConcurrentRun(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, store, 50, nil)

	require.True(t, p.tracker.begin())
	assert.ErrorIs(t, p.RunSync(context.Background()), ErrRunActive)
}

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StatusIdle, tr.Snapshot().Status)

	require.True(t, tr.begin())
	assert.False(t, tr.begin(), "active run must block a second begin")

	tr.setTotals(200, 4)
	tr.advance(50)
	snap := tr.Snapshot()
	assert.Equal(t, 50, snap.Current)
	assert.InDelta(t, 25.0, snap.Progress, 0.01)
	assert.False(t, snap.Terminal())

	tr.complete("done")
	snap = tr.Snapshot()
	assert.True(t, snap.Terminal())
	assert.True(t, tr.begin(), "terminal state must allow a new run")
	assert.Equal(t, 0, tr.Snapshot().Current)
}

func TestTrackerResetOnlyWhenNotRunning(t *testing.T) {
	tr := NewTracker()
	require.True(t, tr.begin())
	assert.False(t, tr.Reset())

	tr.fail("boom")
	assert.True(t, tr.Reset())
	snap := tr.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Error)
}
