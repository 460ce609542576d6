package audio

import (
	"fmt"
	"strings"
	"time"

	"github.com/handiism/listenmoe-client/internal/model"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp and most internet radio players
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines for duration/title info.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	// INI-style format with file, title, and length info.
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	// XML-based SMIL format.
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	// XML-based SMIL format with extended metadata.
	FormatZPL
)

// Extension returns the file extension for the format, including the dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// Live is the Duration of an entry without an end, such as a radio stream.
const Live time.Duration = -1

// Entry is one item of a playlist.
type Entry struct {
	// Location is a URL or a path relative to the playlist file.
	Location string

	Title  string
	Artist string
	Album  string

	// Duration is the entry length, or Live.
	Duration time.Duration
}

// StreamEntries returns the mp3 and ogg/opus streams of each library.
//
// Example:
//
//	entries := StreamEntries(model.Jpop)
//	// [{https://listen.moe/fallback "LISTEN.moe J-POP (MP3)" ...}, {https://listen.moe/stream ...}]
func StreamEntries(libs ...model.Library) []Entry {
	entries := make([]Entry, 0, 2*len(libs))
	for _, lib := range libs {
		entries = append(entries,
			Entry{Location: lib.StreamURL, Title: "LISTEN.moe " + lib.DisplayName + " (MP3)", Duration: Live},
			Entry{Location: lib.OpusURL, Title: "LISTEN.moe " + lib.DisplayName + " (Opus)", Duration: Live},
		)
	}
	return entries
}

// SongEntry describes a recorded song stored at location.
func SongEntry(location string, song *model.Song, preferRomaji bool) Entry {
	return Entry{
		Location: location,
		Title:    song.TitleString(preferRomaji),
		Artist:   song.ArtistsString(preferRomaji),
		Album:    song.AlbumsString(preferRomaji),
		Duration: time.Duration(song.Duration) * time.Second,
	}
}

// PlaylistCreator generates playlist files in various formats.
//
// Example:
//
//	// Create M3U playlist with extended info
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist("LISTEN.moe", StreamEntries(model.Jpop))
//	os.WriteFile("listen.moe.m3u", []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,LISTEN.moe J-POP (MP3)
//	// https://listen.moe/fallback
//	// ...
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// Parameters:
//   - format: The playlist format to generate
//   - extended: For M3U format, whether to include #EXTINF lines
//     (ignored for other formats)
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// Format returns the format the creator writes.
func (p *PlaylistCreator) Format() PlaylistFormat {
	return p.format
}

// CreatePlaylist generates playlist content titled title.
//
// Returns the playlist as a string, ready to be written to a file.
func (p *PlaylistCreator) CreatePlaylist(title string, entries []Entry) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(entries)
	case FormatWPL:
		return p.createWPL(title, entries)
	case FormatZPL:
		return p.createZPL(title, entries)
	default:
		return p.createM3U(entries)
	}
}

// createM3U generates an M3U playlist.
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:-1,LISTEN.moe J-POP (MP3)
//	https://listen.moe/fallback
func (p *PlaylistCreator) createM3U(entries []Entry) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if p.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", seconds(e.Duration), displayName(e)))
		}
		sb.WriteString(e.Location + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
// PLS format is an INI-style text file:
//
//	[playlist]
//	File1=https://listen.moe/fallback
//	Title1=LISTEN.moe J-POP (MP3)
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, e := range entries {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, e.Location))
		sb.WriteString(fmt.Sprintf("Title%d=%s\n", idx, displayName(e)))
		sb.WriteString(fmt.Sprintf("Length%d=%d\n", idx, seconds(e.Duration)))
	}

	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(entries)))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
func (p *PlaylistCreator) createWPL(title string, entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(title)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\"/>\n", escapeXML(e.Location)))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL generates a Zune/Groove Music playlist.
//
// ZPL is similar to WPL but includes additional metadata attributes
// like album title, artist, and track duration.
func (p *PlaylistCreator) createZPL(title string, entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(title)))
	sb.WriteString("    <meta name=\"Generator\" content=\"listenmoe-client\"/>\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		var ms int64 = -1
		if e.Duration != Live {
			ms = e.Duration.Milliseconds()
		}
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\" albumTitle=\"%s\" albumArtist=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(e.Location),
			escapeXML(e.Album),
			escapeXML(e.Artist),
			escapeXML(e.Title),
			escapeXML(e.Artist),
			ms))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

func seconds(d time.Duration) int {
	if d == Live {
		return -1
	}
	return int(d.Seconds())
}

func displayName(e Entry) string {
	if e.Artist == "" {
		return e.Title
	}
	return e.Artist + " - " + e.Title
}

// escapeXML escapes special XML characters in a string.
//
// Replaces: & < > " '
// With:     &amp; &lt; &gt; &quot; &apos;
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
