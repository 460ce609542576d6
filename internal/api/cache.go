package api

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/handiism/listenmoe-client/internal/model"
)

// FetchFunc loads the full song listing.
type FetchFunc func(ctx context.Context) ([]model.SongListItem, error)

// SongsCache holds the song listing for the lifetime of the process.
//
// The first Songs call fetches the listing; concurrent first callers share
// that one fetch. Once a fetch succeeded the result is kept forever: there is
// no invalidation or refresh. A failed fetch is not kept, so the next call
// tries again.
type SongsCache struct {
	fetch FetchFunc
	group singleflight.Group

	mu    sync.RWMutex
	songs []model.SongListItem
	ready bool
}

// NewSongsCache creates an empty cache loading through fetch.
func NewSongsCache(fetch FetchFunc) *SongsCache {
	return &SongsCache{fetch: fetch}
}

// Songs returns the cached listing, fetching it on first use.
func (c *SongsCache) Songs(ctx context.Context) ([]model.SongListItem, error) {
	c.mu.RLock()
	if c.ready {
		songs := c.songs
		c.mu.RUnlock()
		return songs, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("songs", func() (any, error) {
		c.mu.RLock()
		if c.ready {
			defer c.mu.RUnlock()
			return c.songs, nil
		}
		c.mu.RUnlock()

		songs, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if songs == nil {
			songs = []model.SongListItem{}
		}

		c.mu.Lock()
		c.songs = songs
		c.ready = true
		c.mu.Unlock()
		return songs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.SongListItem), nil
}

// Cached reports whether the listing has been fetched.
func (c *SongsCache) Cached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Search returns the cached songs matching query as Song values.
//
// An empty query returns the whole listing. The result is never nil.
func (c *SongsCache) Search(ctx context.Context, query string) ([]model.Song, error) {
	songs, err := c.Songs(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(songs, query), nil
}

// Filter converts every item matching query into a Song.
func Filter(items []model.SongListItem, query string) []model.Song {
	out := make([]model.Song, 0, len(items))
	for _, item := range items {
		if item.Matches(query) {
			out = append(out, item.ToSong())
		}
	}
	return out
}
