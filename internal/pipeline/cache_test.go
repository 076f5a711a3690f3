package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avessar/geoshrink/internal/feature"
)

func TestLoadCacheMemoizes(t *testing.T) {
	cache := NewLoadCache(4)
	calls := 0
	load := func() (*feature.Collection, error) {
		calls++
		return &feature.Collection{}, nil
	}

	key := Key([]byte("a,b\n1,2\n"), "csv", "a", "b")
	first, err := cache.Load(key, load)
	require.NoError(t, err)
	second, err := cache.Load(key, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
}

func TestLoadCacheKeyDependsOnColumns(t *testing.T) {
	data := []byte("a,b\n1,2\n")
	assert.NotEqual(t,
		Key(data, "csv", "a", "b"),
		Key(data, "csv", "b", "a"))
	assert.NotEqual(t,
		Key(data, "csv", "a", "b"),
		Key(data, "geojson", "", ""))
}

func TestLoadCacheEvictsOldest(t *testing.T) {
	cache := NewLoadCache(1)
	calls := 0
	load := func() (*feature.Collection, error) {
		calls++
		return &feature.Collection{}, nil
	}

	_, err := cache.Load("one", load)
	require.NoError(t, err)
	_, err = cache.Load("two", load)
	require.NoError(t, err)
	_, err = cache.Load("one", load)
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
}
