package record

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/listenmoe-client/internal/apitest"
	"github.com/handiism/listenmoe-client/internal/audio"
	"github.com/handiism/listenmoe-client/internal/gateway"
	"github.com/handiism/listenmoe-client/internal/http"
	"github.com/handiism/listenmoe-client/internal/model"
)

func pngCover(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func trackUpdate(id int, title string) gateway.Update {
	return gateway.Update{
		Type: gateway.TrackUpdate,
		Info: model.PlaybackInfo{Song: &model.Song{
			ID:      id,
			Title:   title,
			Artists: []model.ArtistSummary{{Name: "Artist"}},
			Albums:  []model.Album{{Name: "Album", Image: "cover.png"}},
		}},
	}
}

func waitFor(t *testing.T, events <-chan ProgressEvent, prefix string) ProgressEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if strings.HasPrefix(e.Message, prefix) {
				return e
			}
		case <-timeout:
			t.Fatalf("no progress event starting with %q", prefix)
			return ProgressEvent{}
		}
	}
}

type recorderEnv struct {
	srv     *apitest.Server
	rec     *Recorder
	events  chan ProgressEvent
	updates chan gateway.Update
	dir     string
}

func newRecorderEnv(t *testing.T, cfg Config) *recorderEnv {
	t.Helper()

	srv := apitest.New(t)
	cfg.Dir = t.TempDir()
	events := make(chan ProgressEvent, 256)

	hc := http.NewClient(http.WithHTTPClient(srv.Client()))
	rec := NewRecorder(cfg, hc, srv.Library(), func(e ProgressEvent) { events <- e })
	rec.coverURL = func(s *model.Song) string { return srv.FileURL(s.Albums[0].Image) }

	return &recorderEnv{srv: srv, rec: rec, events: events, updates: make(chan gateway.Update), dir: cfg.Dir}
}

func (e *recorderEnv) start(t *testing.T) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.rec.Run(ctx, e.updates) }()
	t.Cleanup(cancel)

	waitFor(t, e.events, "Connected to")
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("recorder did not stop")
			return nil
		}
	}
}

func (e *recorderEnv) write(t *testing.T, data string) {
	t.Helper()
	before, _ := e.rec.GetProgress()
	e.srv.WriteStream([]byte(data))
	require.Eventually(t, func() bool {
		received, _ := e.rec.GetProgress()
		return received == before+int64(len(data))
	}, 5*time.Second, 5*time.Millisecond)
}

func TestRecorder_SplitsAtTrackChanges(t *testing.T) {
	env := newRecorderEnv(t, Config{
		SaveCoverInTags: true,
		CoverMaxSize:    100,
		MaxRetries:      3,
		RetryCooldown:   0.01,
		Playlist:        audio.NewPlaylistCreator(audio.FormatM3U, true),
	})
	env.srv.SetFile("cover.png", pngCover(t, 800, 600))
	stop := env.start(t)

	env.updates <- trackUpdate(1, "First")
	waitFor(t, env.events, "Recording: Artist - First.mp3")
	env.write(t, "first-audio")

	env.updates <- trackUpdate(2, "Second")
	waitFor(t, env.events, "Recording: Artist - Second.mp3")
	env.write(t, "second-audio")

	require.NoError(t, stop())

	_, songs := env.rec.GetProgress()
	assert.Equal(t, int32(2), songs)

	first := filepath.Join(env.dir, "Artist - First.mp3")
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, []byte("first-audio")))

	tag, err := id3v2.Open(first, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Equal(t, "First", tag.Title())
	assert.Equal(t, "Artist", tag.Artist())
	assert.Equal(t, "J-POP", tag.Genre())

	pictures := tag.GetFrames(tag.CommonID("Attached picture"))
	require.Len(t, pictures, 1)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(pictures[0].(id3v2.PictureFrame).Picture))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 75, cfg.Height)

	second, err := os.ReadFile(filepath.Join(env.dir, "Artist - Second.mp3"))
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(second, []byte("second-audio")))

	playlists, err := filepath.Glob(filepath.Join(env.dir, "*.m3u"))
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	content, err := os.ReadFile(playlists[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "#EXTINF:0,Artist - First\nArtist - First.mp3\n")
	assert.Contains(t, string(content), "Artist - Second.mp3\n")
}

func TestRecorder_DropsAudioBeforeFirstTrack(t *testing.T) {
	env := newRecorderEnv(t, Config{MaxRetries: 1})
	stop := env.start(t)

	env.write(t, "orphan")
	env.updates <- trackUpdate(1, "Only")
	waitFor(t, env.events, "Recording:")
	env.write(t, "kept")

	require.NoError(t, stop())

	data, err := os.ReadFile(filepath.Join(env.dir, "Artist - Only.mp3"))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("orphan")))
	assert.True(t, bytes.HasSuffix(data, []byte("kept")))
}

func TestRecorder_EmptySongIsRemoved(t *testing.T) {
	env := newRecorderEnv(t, Config{MaxRetries: 1})
	stop := env.start(t)

	env.updates <- trackUpdate(1, "Skipped")
	waitFor(t, env.events, "Recording:")
	env.updates <- trackUpdate(2, "Kept")
	waitFor(t, env.events, "Nothing recorded for Skipped")
	env.write(t, "audio")

	require.NoError(t, stop())

	_, err := os.Stat(filepath.Join(env.dir, "Artist - Skipped.mp3"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(env.dir, "Artist - Kept.mp3"))
	assert.NoError(t, err)
}

func TestRecorder_SameSongDoesNotSplit(t *testing.T) {
	env := newRecorderEnv(t, Config{MaxRetries: 1})
	stop := env.start(t)

	env.updates <- trackUpdate(1, "Song")
	waitFor(t, env.events, "Recording:")
	env.write(t, "part1")
	env.updates <- trackUpdate(1, "Song")
	env.write(t, "part2")

	require.NoError(t, stop())

	files, err := filepath.Glob(filepath.Join(env.dir, "*.mp3"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, []byte("part1part2")))
}

func TestRecorder_GivesUpOnDeadStream(t *testing.T) {
	lib := model.Jpop
	lib.StreamURL = "http://127.0.0.1:1/fallback"

	var events []ProgressEvent
	rec := NewRecorder(Config{Dir: t.TempDir(), MaxRetries: 2, RetryCooldown: 0.001}, http.NewClient(), lib, func(e ProgressEvent) {
		events = append(events, e)
	})

	err := rec.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record: stream")
	require.NotEmpty(t, events)
	assert.Equal(t, LevelError, events[len(events)-1].Level)
}

func TestRecorder_FileName(t *testing.T) {
	song := &model.Song{
		ID:          42,
		Title:       "残酷な天使のテーゼ",
		TitleRomaji: "Zankoku na Tenshi no Thesis",
		Artists:     []model.ArtistSummary{{Name: "高橋洋子", NameRomaji: "Takahashi Yoko"}},
		Sources:     []model.Source{{Name: "Evangelion"}},
	}

	tests := []struct {
		format string
		romaji bool
		want   string
	}{
		{"{artist} - {title}.mp3", false, "高橋洋子 - 残酷な天使のテーゼ.mp3"},
		{"{artist} - {title}.mp3", true, "Takahashi Yoko - Zankoku na Tenshi no Thesis.mp3"},
		{"{id} {source}", false, "42 Evangelion.mp3"},
		{"{library}/{title}.mp3", false, "jpop_残酷な天使のテーゼ.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rec := NewRecorder(Config{FileNameFormat: tt.format, PreferRomaji: tt.romaji}, http.NewClient(), model.Jpop, nil)
			assert.Equal(t, tt.want, rec.fileName(song))
		})
	}
}

func TestRecorder_UniquePath(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(Config{Dir: dir}, http.NewClient(), model.Jpop, nil)

	assert.Equal(t, filepath.Join(dir, "a.mp3"), rec.uniquePath("a.mp3"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), nil, 0644))
	assert.Equal(t, filepath.Join(dir, "a (2).mp3"), rec.uniquePath("a.mp3"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a (2).mp3"), nil, 0644))
	assert.Equal(t, filepath.Join(dir, "a (3).mp3"), rec.uniquePath("a.mp3"))
}

func TestProgressLevel_String(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "verbose", LevelVerbose.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "success", LevelSuccess.String())
}
