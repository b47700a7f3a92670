package embedding

import (
	"context"
	"sync"
	"time"
)

const (
	// maxBatchSize bounds how many texts are coalesced into one EmbedBatch
	// call, per spec's batching contract.
	maxBatchSize = 32
	// maxBatchWindow is how long the batcher waits to pick up concurrent
	// callers before flushing a partial batch.
	maxBatchWindow = 50 * time.Millisecond
)

type batchRequest struct {
	ctx    context.Context
	text   string
	result chan batchResult
}

type batchResult struct {
	embedding *Embedding
	err       error
}

// BatchingEmbedder coalesces concurrent Embed calls into EmbedBatch calls of
// up to maxBatchSize texts, flushed after maxBatchWindow. It wraps any
// Embedder, in the manner of the indexer's background ticker loop: a single
// goroutine owns a timer and drains a channel of pending requests.
type BatchingEmbedder struct {
	inner   Embedder
	pending chan batchRequest
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewBatchingEmbedder starts the coalescing goroutine and returns the
// decorator. Close must be called to stop the goroutine cleanly.
func NewBatchingEmbedder(inner Embedder) *BatchingEmbedder {
	b := &BatchingEmbedder{
		inner:   inner,
		pending: make(chan batchRequest, maxBatchSize*4),
		done:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Close stops the batching goroutine, flushing any pending requests first.
func (b *BatchingEmbedder) Close() {
	close(b.done)
	b.wg.Wait()
}

func (b *BatchingEmbedder) run() {
	defer b.wg.Done()
	var batch []batchRequest
	timer := time.NewTimer(maxBatchWindow)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		b.flushBatch(batch)
		batch = nil
	}

	for {
		select {
		case req := <-b.pending:
			batch = append(batch, req)
			if len(batch) == 1 {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(maxBatchWindow)
			}
			if len(batch) >= maxBatchSize {
				flush()
			}
		case <-timer.C:
			flush()
			timer.Reset(maxBatchWindow)
		case <-b.done:
			// Drain anything still queued before exiting.
			for {
				select {
				case req := <-b.pending:
					batch = append(batch, req)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (b *BatchingEmbedder) flushBatch(batch []batchRequest) {
	texts := make([]string, len(batch))
	for i, req := range batch {
		texts[i] = req.text
	}

	ctx := batch[0].ctx
	embeddings, err := b.inner.EmbedBatch(ctx, texts)
	if err != nil {
		// Batch failed: fall back to per-item embed, per spec.
		for _, req := range batch {
			e, itemErr := b.inner.Embed(req.ctx, req.text)
			req.result <- batchResult{embedding: e, err: itemErr}
		}
		return
	}
	if len(embeddings) != len(batch) {
		for i, req := range batch {
			if i < len(embeddings) {
				req.result <- batchResult{embedding: embeddings[i]}
			} else {
				e, itemErr := b.inner.Embed(req.ctx, req.text)
				req.result <- batchResult{embedding: e, err: itemErr}
			}
		}
		return
	}
	for i, req := range batch {
		req.result <- batchResult{embedding: embeddings[i]}
	}
}

// Embed enqueues text for the next batch window and blocks for its result.
func (b *BatchingEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	req := batchRequest{ctx: ctx, text: text, result: make(chan batchResult, 1)}
	select {
	case b.pending <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.result:
		return res.embedding, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EmbedBatch passes through directly — the caller has already batched.
func (b *BatchingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	return b.inner.EmbedBatch(ctx, texts)
}

// Dimensions delegates to the wrapped embedder.
func (b *BatchingEmbedder) Dimensions() int { return b.inner.Dimensions() }

// Model delegates to the wrapped embedder.
func (b *BatchingEmbedder) Model() string { return b.inner.Model() }
