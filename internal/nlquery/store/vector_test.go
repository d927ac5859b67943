package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexAddAssignsConsecutiveSlots(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	first, err := idx.Add(ctx, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, first)

	first, err = idx.Add(ctx, [][]float32{{1, 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, first)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestMemoryIndexSearchOrdersByDistance(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_, err := idx.Add(ctx, [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}})
	require.NoError(t, err)

	slots, dists, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.EqualValues(t, 0, slots[0])
	assert.EqualValues(t, 2, slots[1])
	assert.Less(t, dists[0], dists[1])
}

func TestMemoryIndexSearchPadsWithNoMatch(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_, err := idx.Add(ctx, [][]float32{{1, 0}})
	require.NoError(t, err)

	slots, dists, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.EqualValues(t, 0, slots[0])
	assert.Equal(t, NoMatch, slots[1])
	assert.Equal(t, NoMatch, slots[2])
	assert.True(t, math.IsInf(float64(dists[2]), 1))
}

func TestMemoryIndexDimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_, err := idx.Add(ctx, [][]float32{{1, 0}})
	require.NoError(t, err)

	_, err = idx.Add(ctx, [][]float32{{1, 0, 0}})
	assert.Error(t, err)

	_, _, err = idx.Search(ctx, []float32{1}, 1)
	assert.Error(t, err)
}

func TestMemoryIndexSearchRejectsNonPositiveTopK(t *testing.T) {
	idx := NewMemoryIndex()

	_, _, err := idx.Search(context.Background(), []float32{1, 0}, 0)
	assert.Error(t, err)
}
