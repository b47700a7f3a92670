package embedding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchingEmbedder_CoalescesConcurrentCalls(t *testing.T) {
	inner := NewMock(8)
	b := NewBatchingEmbedder(inner)
	defer b.Close()

	var wg sync.WaitGroup
	results := make([]*Embedding, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			e, err := b.Embed(ctx, "text")
			require.NoError(t, err)
			results[idx] = e
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, inner.Dimensions(), len(r.Vector))
	}
}

func TestBatchingEmbedder_FlushesOnWindowExpiry(t *testing.T) {
	inner := NewMock(4)
	b := NewBatchingEmbedder(inner)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := b.Embed(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, 4, len(e.Vector))
}
