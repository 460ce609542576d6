package audio

import (
	"strings"
	"testing"

	"github.com/handiism/listenmoe-client/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist("LISTEN.moe", StreamEntries(model.Jpop))

	if content != "https://listen.moe/fallback\nhttps://listen.moe/stream\n" {
		t.Errorf("unexpected M3U content:\n%s", content)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	creator := NewPlaylistCreator(FormatM3U, true)

	content := creator.CreatePlaylist("LISTEN.moe", StreamEntries(model.Jpop, model.Kpop))

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:-1,LISTEN.moe K-POP (Opus)\nhttps://listen.moe/kpop/stream\n") {
		t.Errorf("Extended M3U should list the K-POP opus stream as live, got:\n%s", content)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	creator := NewPlaylistCreator(FormatPLS, false)

	content := creator.CreatePlaylist("LISTEN.moe", StreamEntries(model.Kpop))

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File1=https://listen.moe/kpop/fallback") {
		t.Error("PLS should contain File1=")
	}
	if !strings.Contains(content, "Length2=-1") {
		t.Error("PLS streams should have length -1")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	creator := NewPlaylistCreator(FormatWPL, false)

	content := creator.CreatePlaylist("LISTEN.moe", StreamEntries(model.Jpop))

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<title>LISTEN.moe</title>") {
		t.Error("WPL should contain the playlist title")
	}
	if !strings.Contains(content, `<media src="https://listen.moe/fallback"/>`) {
		t.Error("WPL should contain media elements")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	song := &model.Song{
		ID:       1,
		Title:    "Snow halation",
		Artists:  []model.ArtistSummary{{Name: "μ's"}},
		Albums:   []model.Album{{Name: "Snow halation"}},
		Duration: 260,
	}
	creator := NewPlaylistCreator(FormatZPL, false)

	content := creator.CreatePlaylist("Recorded", []Entry{SongEntry("snow.mp3", song, false)})

	if !strings.Contains(content, "<?zpl") {
		t.Error("ZPL should contain XML declaration")
	}
	if !strings.Contains(content, `trackArtist="μ&apos;s"`) {
		t.Error("ZPL should contain the escaped artist")
	}
	if !strings.Contains(content, `duration="260000"`) {
		t.Error("ZPL should contain the duration in milliseconds")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	entries := []Entry{{Location: "a&b.mp3", Title: "Track & \"Quote\"", Duration: Live}}

	creator := NewPlaylistCreator(FormatWPL, false)
	content := creator.CreatePlaylist("Mix <Special>", entries)

	if !strings.Contains(content, "a&amp;b.mp3") {
		t.Error("WPL should escape & as &amp;")
	}
	if strings.Contains(content, "<Special>") {
		t.Error("WPL should escape < and >")
	}
}

func TestPlaylistFormat_Extension(t *testing.T) {
	tests := map[PlaylistFormat]string{
		FormatM3U: ".m3u",
		FormatPLS: ".pls",
		FormatWPL: ".wpl",
		FormatZPL: ".zpl",
	}
	for format, want := range tests {
		if got := format.Extension(); got != want {
			t.Errorf("Extension(%d) = %q, want %q", format, got, want)
		}
	}
}
