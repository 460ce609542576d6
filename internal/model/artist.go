package model

// ArtistSummary is the short artist shape attached to songs and returned by
// the artist listing.
type ArtistSummary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NameRomaji string `json:"nameRomaji,omitempty"`
	Image      string `json:"image,omitempty"`
}

// DisplayName returns the romaji name when preferred and available.
func (a ArtistSummary) DisplayName(preferRomaji bool) string {
	return pick(a.Name, a.NameRomaji, preferRomaji)
}

// ImageURL returns the CDN URL of the artist picture, or "".
func (a ArtistSummary) ImageURL() string {
	if a.Image == "" {
		return ""
	}
	return artistCDN + a.Image
}

// Artist is the detailed artist view including the artist's songs.
type Artist struct {
	ArtistSummary
	Songs []Song `json:"songs,omitempty"`
}
