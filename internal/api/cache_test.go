package api

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/listenmoe-client/internal/model"
)

func TestSongsCache_ConcurrentFirstCallersShareFetch(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})

	cache := NewSongsCache(func(ctx context.Context) ([]model.SongListItem, error) {
		fetches.Add(1)
		<-release
		return testSongs(), nil
	})

	var wg sync.WaitGroup
	results := make([][]model.SongListItem, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			songs, err := cache.Songs(context.Background())
			assert.NoError(t, err)
			results[i] = songs
		}()
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load())
	for _, songs := range results {
		assert.Len(t, songs, 3)
	}
	assert.True(t, cache.Cached())
}

func TestSongsCache_FailureIsNotCached(t *testing.T) {
	var calls int
	cache := NewSongsCache(func(ctx context.Context) ([]model.SongListItem, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return testSongs(), nil
	})

	_, err := cache.Songs(context.Background())
	require.Error(t, err)
	assert.False(t, cache.Cached())

	songs, err := cache.Songs(context.Background())
	require.NoError(t, err)
	assert.Len(t, songs, 3)

	_, err = cache.Songs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSongsCache_EmptyListing(t *testing.T) {
	cache := NewSongsCache(func(ctx context.Context) ([]model.SongListItem, error) {
		return nil, nil
	})

	songs, err := cache.Search(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, songs)
	assert.Empty(t, songs)
}

func TestFilter(t *testing.T) {
	items := testSongs()

	all := Filter(items, "")
	require.Len(t, all, 3)
	assert.Equal(t, "Snow halation", all[0].Title)

	none := Filter(items, "zzz")
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.Len(t, Filter(items, "FRIPSIDE"), 1)
}
