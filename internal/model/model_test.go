package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testItem() SongListItem {
	return SongListItem{
		ID:          7,
		Title:       "残酷な天使のテーゼ",
		TitleRomaji: "Zankoku na Tenshi no Thesis",
		Artists:     []ArtistSummary{{ID: 1, Name: "高橋洋子", NameRomaji: "Takahashi Yoko"}},
		Albums:      []Album{{ID: 2, Name: "NEON GENESIS EVANGELION", Image: "eva.jpg"}},
		Sources:     []Source{{ID: 3, Name: "Evangelion"}},
		Duration:    245,
		Enabled:     true,
	}
}

func TestSongListItem_Matches(t *testing.T) {
	item := testItem()

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"thesis", true},
		{"ZANKOKU", true},
		{"天使", true},
		{"takahashi", true},
		{"genesis", true},
		{"evangelion", true},
		{"yuki", false},
		{"snow halation", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, item.Matches(tt.query))
		})
	}
}

func TestSongListItem_ToSong(t *testing.T) {
	item := testItem()
	item.Favorite = true

	song := item.ToSong()

	assert.Equal(t, 7, song.ID)
	assert.Equal(t, item.Title, song.Title)
	assert.Equal(t, item.Artists, song.Artists)
	assert.True(t, song.Favorite)
	assert.Equal(t, 245, song.Duration)
}

func TestSong_Strings(t *testing.T) {
	song := testItem().ToSong()
	song.Artists = append(song.Artists, ArtistSummary{Name: "Second"})

	assert.Equal(t, "残酷な天使のテーゼ", song.TitleString(false))
	assert.Equal(t, "Zankoku na Tenshi no Thesis", song.TitleString(true))
	assert.Equal(t, "高橋洋子, Second", song.ArtistsString(false))
	assert.Equal(t, "Takahashi Yoko, Second", song.ArtistsString(true))
	assert.Equal(t, "NEON GENESIS EVANGELION", song.AlbumsString(true))
	assert.Equal(t, "Evangelion", song.SourcesString(false))
}

func TestSong_AlbumArtURL(t *testing.T) {
	song := testItem().ToSong()
	assert.Equal(t, "https://cdn.listen.moe/covers/eva.jpg", song.AlbumArtURL())

	song.Albums = nil
	assert.Empty(t, song.AlbumArtURL())
}

func TestSong_SetFavorite(t *testing.T) {
	song := Song{ID: 1}

	song.SetFavorite(true)
	assert.True(t, song.Favorite)

	song.SetFavorite(false)
	assert.False(t, song.Favorite)
}

func TestLibraryByName(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"jpop", "jpop", true},
		{"J-POP", "jpop", true},
		{"kpop", "kpop", true},
		{" k-pop ", "kpop", true},
		{"cpop", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, ok := LibraryByName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, lib.Name)
		})
	}
}

func TestPlaybackInfo_Progress(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	info := PlaybackInfo{
		Song:      &Song{ID: 1, Duration: 200},
		StartTime: start,
	}

	assert.InDelta(t, 0.5, info.Progress(start.Add(100*time.Second)), 0.0001)
	assert.Equal(t, 1.0, info.Progress(start.Add(time.Hour)))
	assert.Equal(t, 0.0, info.Progress(start.Add(-time.Minute)))

	info.Song = nil
	assert.Equal(t, 0.0, info.Progress(start.Add(time.Second)))
}

func TestPlaybackInfo_LastSong(t *testing.T) {
	info := PlaybackInfo{}
	assert.Nil(t, info.LastSong())

	info.LastPlayed = []Song{{ID: 9}, {ID: 8}}
	assert.Equal(t, 9, info.LastSong().ID)
}

func TestUser_Name(t *testing.T) {
	assert.Equal(t, "kiri", User{Username: "kiri"}.Name())
	assert.Equal(t, "Kirishima", User{Username: "kiri", DisplayName: "Kirishima"}.Name())
}
