package model

import (
	"strings"
)

const (
	coverCDN  = "https://cdn.listen.moe/covers/"
	artistCDN = "https://cdn.listen.moe/artists/"
)

// Song represents a song as returned by the radio API.
//
// Song is fetched from the API and is never mutated locally, with one
// exception: the Favorite flag, which is only flipped after the favorite or
// unfavorite API call succeeded (see SetFavorite).
//
// Example:
//
//	song := favorites[0]
//	fmt.Printf("%s - %s\n", song.ArtistsString(false), song.TitleString(false))
type Song struct {
	// ID is the song identifier used by favorite and request endpoints.
	ID int `json:"id"`

	// Title is the original song title.
	Title string `json:"title"`

	// TitleRomaji is the romanized title, if the API provides one.
	TitleRomaji string `json:"titleRomaji,omitempty"`

	// Artists performing the song.
	Artists []ArtistSummary `json:"artists,omitempty"`

	// Albums the song appears on.
	Albums []Album `json:"albums,omitempty"`

	// Sources are the anime/games/dramas the song comes from.
	Sources []Source `json:"sources,omitempty"`

	// Duration is the song length in seconds.
	Duration int `json:"duration,omitempty"`

	// Enabled reports whether the song can currently be requested.
	Enabled bool `json:"enabled"`

	// Favorite is the user-specific favorite flag.
	Favorite bool `json:"favorite"`
}

// Album is an album reference attached to a song.
type Album struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NameRomaji string `json:"nameRomaji,omitempty"`
	Image      string `json:"image,omitempty"`
}

// Source is the work (anime, game, ...) a song originates from.
type Source struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NameRomaji string `json:"nameRomaji,omitempty"`
	Image      string `json:"image,omitempty"`
}

// SetFavorite records the result of a successful favorite round trip.
func (s *Song) SetFavorite(favorite bool) {
	s.Favorite = favorite
}

// TitleString returns the display title, preferring the romaji title when
// requested and available.
func (s *Song) TitleString(preferRomaji bool) string {
	return pick(s.Title, s.TitleRomaji, preferRomaji)
}

// ArtistsString joins all artist names with ", ".
func (s *Song) ArtistsString(preferRomaji bool) string {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		names = append(names, pick(a.Name, a.NameRomaji, preferRomaji))
	}
	return strings.Join(names, ", ")
}

// AlbumsString joins all album names with ", ".
func (s *Song) AlbumsString(preferRomaji bool) string {
	names := make([]string, 0, len(s.Albums))
	for _, a := range s.Albums {
		names = append(names, pick(a.Name, a.NameRomaji, preferRomaji))
	}
	return strings.Join(names, ", ")
}

// SourcesString joins all source names with ", ".
func (s *Song) SourcesString(preferRomaji bool) string {
	names := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		names = append(names, pick(src.Name, src.NameRomaji, preferRomaji))
	}
	return strings.Join(names, ", ")
}

// AlbumArtURL returns the cover URL of the first album with an image.
// Empty string means no cover is available.
func (s *Song) AlbumArtURL() string {
	for _, a := range s.Albums {
		if a.Image != "" {
			return coverCDN + a.Image
		}
	}
	return ""
}

// SongListItem is the compact song shape returned by the song listing.
//
// The search screen filters a cached list of SongListItem in-process instead
// of calling the API for every query.
type SongListItem struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	TitleRomaji string          `json:"titleRomaji,omitempty"`
	Artists     []ArtistSummary `json:"artists,omitempty"`
	Albums      []Album         `json:"albums,omitempty"`
	Sources     []Source        `json:"sources,omitempty"`
	Duration    int             `json:"duration,omitempty"`
	Enabled     bool            `json:"enabled"`
	Favorite    bool            `json:"favorite"`
}

// Matches reports whether query is a case-insensitive substring of the title,
// romaji title, or any artist, album or source name.
//
// An empty query matches every item.
//
// Example:
//
//	item := SongListItem{Title: "Snow Halation"}
//	item.Matches("halation") // true
//	item.Matches("yuki")     // false
func (s SongListItem) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	fields := []string{s.Title, s.TitleRomaji}
	for _, a := range s.Artists {
		fields = append(fields, a.Name, a.NameRomaji)
	}
	for _, a := range s.Albums {
		fields = append(fields, a.Name, a.NameRomaji)
	}
	for _, src := range s.Sources {
		fields = append(fields, src.Name, src.NameRomaji)
	}

	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// ToSong converts the list item into a Song.
func (s SongListItem) ToSong() Song {
	return Song{
		ID:          s.ID,
		Title:       s.Title,
		TitleRomaji: s.TitleRomaji,
		Artists:     s.Artists,
		Albums:      s.Albums,
		Sources:     s.Sources,
		Duration:    s.Duration,
		Enabled:     s.Enabled,
		Favorite:    s.Favorite,
	}
}

func pick(name, romaji string, preferRomaji bool) string {
	if preferRomaji && romaji != "" {
		return romaji
	}
	return name
}
