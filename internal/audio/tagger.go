package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/bogem/id3v2"

	"github.com/handiism/listenmoe-client/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
//
// Each tag field can be configured independently to determine whether
// it should be modified, cleared, or left unchanged.
type TagEditAction int

const (
	// TagEmpty clears the tag value (sets to empty string).
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from the radio metadata.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags: true,
//	    Artist:     TagModify,      // Update artist from the now-playing song
//	    Album:      TagModify,      // Update album
//	    TrackTitle: TagModify,      // Update title
//	    Source:     TagModify,      // Anime/game the song is from
//	    Date:       TagModify,      // When the song was recorded
//	    Comments:   TagEmpty,       // Clear any existing comments
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no string tags are modified.
	ModifyTags bool

	// PreferRomaji writes romanized names when the API has them.
	PreferRomaji bool

	// Artist controls the TPE1 (Lead artist) frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame.
	AlbumArtist TagEditAction

	// Album controls the TALB (Album title) frame.
	Album TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction

	// Source controls the TIT1 (Content group) frame, which holds the
	// anime or game the song comes from.
	Source TagEditAction

	// Date controls the TDRC (Recording time) frame (ID3v2.4).
	Date TagEditAction

	// Comments controls the COMM (Comments) frame.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration: every frame is
// written from the song metadata.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		TrackTitle:  TagModify,
		Source:      TagModify,
		Date:        TagModify,
		Comments:    TagModify,
	}
}

// Recording describes a song captured from the radio stream.
type Recording struct {
	// Path is the mp3 file on disk.
	Path string

	Song     *model.Song
	Library  model.Library
	Recorded time.Time
}

// Tagger writes ID3 tags to MP3 files.
//
// Tagger uses the id3v2 library to modify MP3 file metadata including:
//   - Artist, Album Artist
//   - Album Title, Track Title
//   - Source (content group)
//   - Recording date and a comment naming the channel
//   - Cover Art (attached picture)
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//
//	// After a song finished recording
//	err := tagger.SaveTags(rec, artworkBytes)
//	if err != nil {
//	    log.Printf("Failed to tag %s: %v", rec.Path, err)
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags to the recording's MP3 file.
//
// This method:
//  1. Opens the existing MP3 file (or creates empty tags if none exist)
//  2. Updates string tags based on TagConfig settings
//  3. Embeds cover art if artwork bytes are provided
//  4. Saves the modified tags to the file
//
// Returns an error if the file cannot be opened or saved.
func (t *Tagger) SaveTags(rec Recording, artwork []byte) error {
	if rec.Song == nil {
		return fmt.Errorf("tag %s: no song", rec.Path)
	}

	tag, err := id3v2.Open(rec.Path, id3v2.Options{Parse: true})
	if err != nil {
		if os.IsNotExist(err) {
			tag = id3v2.NewEmptyTag()
		} else {
			return err
		}
	}
	defer tag.Close()

	if t.config.ModifyTags {
		t.updateStringTags(tag, rec)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

// updateStringTags updates text-based ID3 frames based on configuration.
func (t *Tagger) updateStringTags(tag *id3v2.Tag, rec Recording) {
	song := rec.Song
	romaji := t.config.PreferRomaji
	artist := song.ArtistsString(romaji)

	var recorded string
	if !rec.Recorded.IsZero() {
		recorded = rec.Recorded.Format("2006-01-02")
	}

	frames := []struct {
		id     string
		action TagEditAction
		value  string
	}{
		{"TPE1", t.config.Artist, artist},
		{"TPE2", t.config.AlbumArtist, artist},
		{"TALB", t.config.Album, song.AlbumsString(romaji)},
		{"TIT2", t.config.TrackTitle, song.TitleString(romaji)},
		{"TIT1", t.config.Source, song.SourcesString(romaji)},
		{"TDRC", t.config.Date, recorded},
	}
	for _, f := range frames {
		switch f.action {
		case TagEmpty:
			tag.DeleteFrames(f.id)
		case TagModify:
			if f.value == "" {
				tag.DeleteFrames(f.id)
				continue
			}
			tag.AddTextFrame(f.id, id3v2.EncodingUTF8, f.value)
		}
	}

	comments := tag.CommonID("Comments")
	if t.config.Comments != TagDoNotModify {
		tag.DeleteFrames(comments)
	}
	if t.config.Comments == TagModify {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     fmt.Sprintf("Recorded from LISTEN.moe %s (song %d)", rec.Library.DisplayName, song.ID),
		})
	}

	// The genre is the channel.
	if rec.Library.DisplayName != "" {
		tag.SetGenre(rec.Library.DisplayName)
	}
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}
