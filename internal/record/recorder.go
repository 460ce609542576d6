package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/listenmoe-client/internal/audio"
	"github.com/handiism/listenmoe-client/internal/config"
	"github.com/handiism/listenmoe-client/internal/gateway"
	"github.com/handiism/listenmoe-client/internal/http"
	ioutils "github.com/handiism/listenmoe-client/internal/io"
	"github.com/handiism/listenmoe-client/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// ProgressEvent represents a recording progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Config controls where and how songs are recorded.
type Config struct {
	// Dir receives one mp3 file per song.
	Dir string

	// FileNameFormat names each file. Placeholders: {artist}, {title},
	// {album}, {source}, {id}, {library}, {date}.
	FileNameFormat string

	// PreferRomaji uses romanized names in file names and tags.
	PreferRomaji bool

	// SaveCoverInTags embeds the album cover, scaled to CoverMaxSize.
	SaveCoverInTags bool
	CoverMaxSize    int

	// MaxRetries is how many consecutive stream failures are tolerated.
	MaxRetries int

	// RetryCooldown is the first wait between stream retries in seconds;
	// each retry multiplies it by RetryExponent.
	RetryCooldown float64
	RetryExponent float64

	// Playlist, when set, writes a playlist of the recorded songs into Dir
	// once recording stops.
	Playlist *audio.PlaylistCreator
}

// ConfigFromSettings derives a Config from the user settings.
func ConfigFromSettings(s *config.Settings) Config {
	return Config{
		Dir:             s.RecordDir,
		FileNameFormat:  s.FileNameFormat,
		PreferRomaji:    s.PreferRomaji,
		SaveCoverInTags: s.SaveCoverInTags,
		CoverMaxSize:    s.CoverMaxSize,
		MaxRetries:      s.RecordMaxRetries,
		RetryCooldown:   1,
		RetryExponent:   2,
		Playlist:        audio.NewPlaylistCreator(s.ToPlaylistFormat(), s.M3UExtended),
	}
}

type segment struct {
	song    *model.Song
	path    string
	file    *os.File
	writer  *http.ProgressWriter
	started time.Time
}

// Recorder records the live mp3 stream, one file per song.
//
// Song boundaries come from gateway track updates. Every finished file is
// tagged with the song metadata and, when enabled, its album cover.
//
// Example:
//
//	gw := gateway.New(lib.GatewayURL)
//	go gw.Run(ctx)
//
//	rec := record.NewRecorder(record.ConfigFromSettings(settings), httpClient, lib, onProgress)
//	err := rec.Run(ctx, gw.Updates())
type Recorder struct {
	cfg          Config
	httpClient   *http.Client
	library      model.Library
	tagger       *audio.Tagger
	imageService *ioutils.ImageService
	clock        clockwork.Clock
	coverURL     func(*model.Song) string

	current  *segment
	recorded []audio.Entry
	mu       sync.Mutex

	receivedBytes int64
	songs         int32

	onProgress func(ProgressEvent)
}

// NewRecorder creates a Recorder for lib's mp3 stream.
func NewRecorder(cfg Config, httpClient *http.Client, lib model.Library, onProgress func(ProgressEvent)) *Recorder {
	if cfg.FileNameFormat == "" {
		cfg.FileNameFormat = "{artist} - {title}.mp3"
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryExponent < 1 {
		cfg.RetryExponent = 1
	}

	tagCfg := audio.DefaultTagConfig()
	tagCfg.PreferRomaji = cfg.PreferRomaji

	return &Recorder{
		cfg:          cfg,
		httpClient:   httpClient,
		library:      lib,
		tagger:       audio.NewTagger(tagCfg),
		imageService: ioutils.NewImageService(),
		clock:        clockwork.NewRealClock(),
		coverURL:     func(s *model.Song) string { return s.AlbumArtURL() },
		onProgress:   onProgress,
	}
}

// Run records until ctx is done or the stream fails MaxRetries times in a
// row. Each track change on updates closes the current file and starts the
// next. The file being written when recording stops is finished and tagged
// as well.
func (r *Recorder) Run(ctx context.Context, updates <-chan gateway.Update) error {
	if err := ioutils.EnsureDir(r.cfg.Dir); err != nil {
		r.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.stream(gctx)
	})
	g.Go(func() error {
		r.follow(gctx, updates)
		return nil
	})
	err := g.Wait()

	// Finish the last song even though ctx is done.
	r.mu.Lock()
	last := r.current
	r.current = nil
	r.mu.Unlock()
	r.finish(context.WithoutCancel(ctx), last)

	r.writePlaylist(context.WithoutCancel(ctx))
	return err
}

// GetProgress returns the bytes received and the number of finished songs.
func (r *Recorder) GetProgress() (received int64, songs int32) {
	return atomic.LoadInt64(&r.receivedBytes), atomic.LoadInt32(&r.songs)
}

// Recorded returns playlist entries for the songs finished so far.
func (r *Recorder) Recorded() []audio.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audio.Entry(nil), r.recorded...)
}

// Write appends stream data to the current file. Data arriving before the
// first track update is dropped.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	atomic.AddInt64(&r.receivedBytes, int64(len(p)))
	if r.current == nil {
		return len(p), nil
	}
	return r.current.writer.Write(p)
}

func (r *Recorder) stream(ctx context.Context) error {
	var err error
	for tries := 0; tries < r.cfg.MaxRetries; {
		var body io.ReadCloser
		body, err = r.httpClient.OpenStream(ctx, r.library.StreamURL)
		if err == nil {
			r.progress(ProgressEvent{Message: fmt.Sprintf("Connected to %s stream", r.library.DisplayName), Level: LevelVerbose})

			var n int64
			n, err = io.Copy(r, body)
			body.Close()
			if n > 0 {
				tries = 0
			}
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
		}

		if ctx.Err() != nil {
			return nil
		}

		tries++
		r.progress(ProgressEvent{Message: fmt.Sprintf("Stream interrupted (%v), retry %d/%d", err, tries, r.cfg.MaxRetries), Level: LevelWarning})
		if tries < r.cfg.MaxRetries {
			r.waitForRetry(ctx, tries-1)
		}
	}

	r.progress(ProgressEvent{Message: fmt.Sprintf("Giving up on stream: %v", err), Level: LevelError})
	return fmt.Errorf("record: stream: %w", err)
}

func (r *Recorder) follow(ctx context.Context, updates <-chan gateway.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				r.progress(ProgressEvent{Message: "Gateway closed, songs are no longer split", Level: LevelWarning})
				return
			}
			if u.Err != nil {
				r.progress(ProgressEvent{Message: fmt.Sprintf("Gateway error: %v", u.Err), Level: LevelWarning})
				continue
			}
			if !u.IsTrackChange() || u.Info.Song == nil {
				continue
			}
			if err := r.startSegment(ctx, u.Info.Song); err != nil {
				r.progress(ProgressEvent{Message: fmt.Sprintf("Error starting file: %v", err), Level: LevelError})
			}
		}
	}
}

// startSegment switches writing to a new file for song and finishes the
// previous one.
func (r *Recorder) startSegment(ctx context.Context, song *model.Song) error {
	r.mu.Lock()
	if r.current != nil && r.current.song.ID == song.ID {
		r.mu.Unlock()
		return nil
	}

	path := r.uniquePath(r.fileName(song))
	file, err := os.Create(path)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	prev := r.current
	r.current = &segment{
		song:    song,
		path:    path,
		file:    file,
		writer:  &http.ProgressWriter{Writer: file, Total: -1},
		started: r.clock.Now(),
	}
	r.mu.Unlock()

	r.progress(ProgressEvent{Message: fmt.Sprintf("Recording: %s", filepath.Base(path)), Level: LevelInfo})
	r.finish(ctx, prev)
	return nil
}

// finish closes seg, drops it when empty and tags it otherwise.
func (r *Recorder) finish(ctx context.Context, seg *segment) {
	if seg == nil {
		return
	}
	if err := seg.file.Close(); err != nil {
		r.progress(ProgressEvent{Message: fmt.Sprintf("Error closing %s: %v", filepath.Base(seg.path), err), Level: LevelWarning})
	}

	if seg.writer.Written == 0 {
		_ = os.Remove(seg.path)
		r.progress(ProgressEvent{Message: fmt.Sprintf("Nothing recorded for %s", seg.song.TitleString(r.cfg.PreferRomaji)), Level: LevelVerbose})
		return
	}

	var artwork []byte
	if r.cfg.SaveCoverInTags {
		var err error
		artwork, err = r.downloadArtwork(ctx, seg.song)
		if err != nil {
			r.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading artwork for %s: %v", seg.song.TitleString(r.cfg.PreferRomaji), err), Level: LevelWarning})
		}
	}

	rec := audio.Recording{Path: seg.path, Song: seg.song, Library: r.library, Recorded: seg.started}
	if err := r.tagger.SaveTags(rec, artwork); err != nil {
		r.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", filepath.Base(seg.path), err), Level: LevelWarning})
	}

	r.mu.Lock()
	r.recorded = append(r.recorded, audio.SongEntry(filepath.Base(seg.path), seg.song, r.cfg.PreferRomaji))
	r.mu.Unlock()
	atomic.AddInt32(&r.songs, 1)

	r.progress(ProgressEvent{Message: fmt.Sprintf("Recorded: %s", filepath.Base(seg.path)), Level: LevelSuccess})
}

var errNoCover = errors.New("song has no cover")

func (r *Recorder) downloadArtwork(ctx context.Context, song *model.Song) ([]byte, error) {
	coverURL := r.coverURL(song)
	if coverURL == "" {
		return nil, errNoCover
	}

	var artwork []byte
	var err error
	for tries := 0; tries < r.cfg.MaxRetries; tries++ {
		artwork, err = r.httpClient.DownloadBytes(ctx, coverURL)
		if err == nil {
			break
		}
		r.waitForRetry(ctx, tries)
	}
	if err != nil {
		return nil, err
	}

	return r.imageService.PrepareCover(ctx, artwork, r.cfg.CoverMaxSize)
}

func (r *Recorder) writePlaylist(ctx context.Context) {
	entries := r.Recorded()
	if r.cfg.Playlist == nil || len(entries) == 0 {
		return
	}

	name := "LISTEN.moe " + r.library.DisplayName + " " + r.clock.Now().Format("2006-01-02 15.04")
	path := filepath.Join(r.cfg.Dir, ioutils.SanitizeFileName(name)+r.cfg.Playlist.Format().Extension())
	content := r.cfg.Playlist.CreatePlaylist(name, entries)

	if err := ioutils.WriteFileAtomic(ctx, path, []byte(content), 0644); err != nil {
		r.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return
	}
	r.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", filepath.Base(path)), Level: LevelSuccess})
}

func (r *Recorder) fileName(song *model.Song) string {
	romaji := r.cfg.PreferRomaji
	name := strings.NewReplacer(
		"{artist}", song.ArtistsString(romaji),
		"{title}", song.TitleString(romaji),
		"{album}", song.AlbumsString(romaji),
		"{source}", song.SourcesString(romaji),
		"{id}", strconv.Itoa(song.ID),
		"{library}", r.library.Name,
		"{date}", r.clock.Now().Format("2006-01-02"),
	).Replace(r.cfg.FileNameFormat)

	name = ioutils.SanitizeFileName(name)
	if !strings.HasSuffix(strings.ToLower(name), ".mp3") {
		name += ".mp3"
	}
	return name
}

// uniquePath returns a path in Dir for name that does not exist yet,
// adding " (2)", " (3)", ... when needed.
func (r *Recorder) uniquePath(name string) string {
	path := filepath.Join(r.cfg.Dir, name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(r.cfg.Dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
	}
}

func (r *Recorder) waitForRetry(ctx context.Context, tries int) {
	cooldown := r.cfg.RetryCooldown * math.Pow(r.cfg.RetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-r.clock.After(time.Duration(cooldown * float64(time.Second))):
	}
}

func (r *Recorder) progress(event ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(event)
	}
}
