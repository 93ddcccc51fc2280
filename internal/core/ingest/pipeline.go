package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docqa/server/internal/core"
)

// ErrRunActive is returned when a vectorization run is requested while
// another one is still in flight.
var ErrRunActive = errors.New("a vectorization run is already active")

// Pipeline drives a full reindex: load everything from storage, split into
// chunks, clear the vector index and upsert the chunks in batches. Progress
// is published through the tracker; only one run executes at a time.
type Pipeline struct {
	loader    *Loader
	splitter  *Splitter
	store     core.VectorStore
	tracker   *Tracker
	batchSize int
	log       *slog.Logger

	// OnCompleted runs after a successful background run, with the run's
	// context. Used to flip document vectorized flags once the index is
	// rebuilt.
	OnCompleted func(ctx context.Context)
}

func NewPipeline(loader *Loader, splitter *Splitter, store core.VectorStore, tracker *Tracker, batchSize int) *Pipeline {
	return &Pipeline{
		loader:    loader,
		splitter:  splitter,
		store:     store,
		tracker:   tracker,
		batchSize: batchSize,
		log:       slog.Default().With("component", "pipeline"),
	}
}

func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Start launches a background run. It returns false when a run is already
// active, in which case the caller simply observes the existing one.
func (p *Pipeline) Start(ctx context.Context) bool {
	if !p.tracker.begin() {
		return false
	}
	go func() {
		if err := p.run(ctx); err != nil {
			p.log.Error("vectorization run failed", "error", err)
			return
		}
		if p.OnCompleted != nil {
			p.OnCompleted(ctx)
		}
	}()
	return true
}

// RunSync executes a run on the calling goroutine. A concurrent run yields
// ErrRunActive.
func (p *Pipeline) RunSync(ctx context.Context) error {
	if !p.tracker.begin() {
		return ErrRunActive
	}
	return p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) error {
	docs, err := p.loader.Load(ctx)
	if err != nil {
		p.tracker.fail(fmt.Sprintf("load documents: %v", err))
		return err
	}

	p.tracker.setPhase(StatusSplitting, fmt.Sprintf("splitting %d documents", len(docs)))
	chunks := p.splitter.Split(docs)

	p.tracker.setPhase(StatusVectorizing, "clearing previous index")
	if err := p.store.DeleteAll(ctx); err != nil {
		p.tracker.fail(fmt.Sprintf("clear index: %v", err))
		return err
	}

	total := len(chunks)
	if total == 0 {
		p.tracker.complete("no chunks to vectorize")
		p.log.Info("vectorization finished", "chunks", 0)
		return nil
	}

	batchTotal := (total + p.batchSize - 1) / p.batchSize
	p.tracker.setTotals(total, batchTotal)

	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := start/p.batchSize + 1
		p.tracker.beginBatch(batch, fmt.Sprintf("vectorizing batch %d/%d (%d/%d chunks)", batch, batchTotal, start, total))
		if err := p.store.Upsert(ctx, chunks[start:end]); err != nil {
			p.tracker.fail(fmt.Sprintf("vectorize batch %d/%d: %v", batch, batchTotal, err))
			return err
		}
		p.tracker.advance(end - start)
	}

	p.tracker.complete(fmt.Sprintf("vectorized %d chunks in %d batches", total, batchTotal))
	p.log.Info("vectorization finished", "chunks", total, "batches", batchTotal)
	return nil
}
