package model

import "time"

// PlaybackInfo is a now-playing update pushed by the radio gateway.
type PlaybackInfo struct {
	// Song is the song currently on air. Nil between tracks.
	Song *Song `json:"song"`

	// StartTime is when the current song started.
	StartTime time.Time `json:"startTime"`

	// LastPlayed holds the previously played songs, most recent first.
	LastPlayed []Song `json:"lastPlayed"`

	// Listeners is the current listener count.
	Listeners int `json:"listeners"`

	// Requester is the user who requested the current song, if any.
	Requester *Requester `json:"requester"`

	// Event is the running radio event, if any.
	Event *Event `json:"event"`
}

// Requester identifies who requested a song.
type Requester struct {
	UUID        string `json:"uuid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Event is a special radio event (e.g. a live DJ set).
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	Presence  string `json:"presence"`
	StartTime string `json:"startTime"`
}

// Elapsed returns how long the current song has been playing at now.
// Zero when the start time is unknown.
func (p *PlaybackInfo) Elapsed(now time.Time) time.Duration {
	if p.StartTime.IsZero() || now.Before(p.StartTime) {
		return 0
	}
	return now.Sub(p.StartTime)
}

// Progress returns the fraction of the current song already played, in [0, 1].
func (p *PlaybackInfo) Progress(now time.Time) float64 {
	if p.Song == nil || p.Song.Duration <= 0 {
		return 0
	}
	f := p.Elapsed(now).Seconds() / float64(p.Song.Duration)
	if f > 1 {
		return 1
	}
	return f
}

// LastSong returns the most recently played song before the current one.
func (p *PlaybackInfo) LastSong() *Song {
	if len(p.LastPlayed) == 0 {
		return nil
	}
	return &p.LastPlayed[0]
}
