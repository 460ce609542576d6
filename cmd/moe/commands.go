package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/listenmoe-client/internal/api"
	"github.com/handiism/listenmoe-client/internal/audio"
	ioutils "github.com/handiism/listenmoe-client/internal/io"
	"github.com/handiism/listenmoe-client/internal/model"
	"github.com/handiism/listenmoe-client/internal/record"
)

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":      {"[-user name] [-password pass]", "Log in (prompts for missing fields)", cmdLogin},
		"mfa":        {"<code>", "Finish a login with a one-time password", cmdMFA},
		"register":   {"-email addr -user name -password pass", "Create an account", cmdRegister},
		"logout":     {"", "Forget the stored token", cmdLogout},
		"whoami":     {"", "Show the logged in user", cmdWhoami},
		"status":     {"", "Show library and login state", cmdStatus},
		"songs":      {"[-limit n]", "List every song of the library", cmdSongs},
		"search":     {"<query>", "Search songs by title, artist, album or source", cmdSearch},
		"favorites":  {"", "List your favorite songs", cmdFavorites},
		"favorite":   {"<song id>...", "Add songs to your favorites", cmdFavorite},
		"unfavorite": {"<song id>...", "Remove songs from your favorites", cmdUnfavorite},
		"request":    {"<song id>...", "Request songs on the radio", cmdRequest},
		"artists":    {"", "List artists", cmdArtists},
		"artist":     {"<artist id>", "Show an artist and their songs", cmdArtist},
		"now":        {"[-follow]", "Show the song on air", cmdNow},
		"playlist":   {"[-format m3u|pls|wpl|zpl] [-all] [-o file]", "Write a playlist of the radio streams", cmdPlaylist},
		"record":     {"[-dir path] [-duration d]", "Record the stream, one file per song", cmdRecord},
	}
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("login")
	username := fs.String("user", "", "Username or email")
	password := fs.String("password", "", "Password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *username == "" {
		*username = a.prompt("Username: ")
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}
	if *username == "" || *password == "" {
		return a.usage("login")
	}

	d := api.NewDispatcher(1)
	var failure error
	a.api.AuthenticateAsync(d, ctx, *username, *password, api.LoginCallback{
		OnSuccess: func(string) {
			fmt.Fprintln(a.out, "Logged in.")
		},
		OnMFARequired: func(string) {
			fmt.Fprintln(a.out, "Two-factor authentication is enabled. Finish with: moe mfa <code>")
		},
		OnFailure: func(err error) {
			failure = err
		},
	})
	d.Wait()
	return failure
}

func cmdMFA(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return a.usage("mfa")
	}
	if token, err := a.session.MFAToken(); err != nil || token == "" {
		fmt.Fprintln(a.err, "No login is waiting for a one-time password. Run moe login first.")
		return errReported
	}

	if _, err := a.api.AuthenticateMFA(ctx, strings.TrimSpace(args[0])); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("register")
	email := fs.String("email", "", "Email address")
	username := fs.String("user", "", "Username")
	password := fs.String("password", "", "Password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *username == "" || *password == "" {
		return a.usage("register")
	}

	msg, err := a.api.Register(ctx, *email, *username, *password)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Registered."
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	user, err := a.api.UserInfo(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Username:           %s\n", user.Username)
	if user.DisplayName != "" && user.DisplayName != user.Username {
		fmt.Fprintf(a.out, "Display name:       %s\n", user.DisplayName)
	}
	fmt.Fprintf(a.out, "Requests remaining: %d\n", user.RequestsRemaining)
	if expires, err := a.session.ExpiresAt(); err == nil && !expires.IsZero() {
		fmt.Fprintf(a.out, "Token valid until:  %s\n", expires.Local().Format(time.DateTime))
	}
	return nil
}

func cmdStatus(_ context.Context, a *app, _ []string) error {
	fmt.Fprintf(a.out, "Library:   %s (%s)\n", a.library.DisplayName, a.library.Name)
	fmt.Fprintf(a.out, "Stream:    %s\n", a.library.StreamURL)

	if !a.session.IsAuthenticated() {
		fmt.Fprintln(a.out, "Logged in: no")
		return nil
	}

	who := "yes"
	if claims, err := a.session.Claims(); err == nil {
		if name, ok := claims["username"].(string); ok && name != "" {
			who = "yes, as " + name
		}
	}
	fmt.Fprintf(a.out, "Logged in: %s\n", who)
	if expires, err := a.session.ExpiresAt(); err == nil && !expires.IsZero() {
		fmt.Fprintf(a.out, "Expires:   %s\n", expires.Local().Format(time.DateTime))
	}
	return nil
}

func cmdSongs(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("songs")
	limit := fs.Int("limit", 0, "Show at most n songs (0 for all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	items, err := a.api.Songs(ctx)
	if err != nil {
		return err
	}

	songs := make([]model.Song, 0, len(items))
	for _, item := range items {
		songs = append(songs, item.ToSong())
	}
	if *limit > 0 && len(songs) > *limit {
		songs = songs[:*limit]
	}
	printSongs(a.out, songs, a.settings.PreferRomaji)
	fmt.Fprintf(a.out, "%d of %d song(s)\n", len(songs), len(items))
	return nil
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return a.usage("search")
	}

	songs, err := a.api.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		fmt.Fprintln(a.out, "No songs found.")
		return nil
	}
	printSongs(a.out, songs, a.settings.PreferRomaji)
	return nil
}

func cmdFavorites(ctx context.Context, a *app, _ []string) error {
	songs, err := a.api.UserFavorites(ctx)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		fmt.Fprintln(a.out, "No favorites yet.")
		return nil
	}
	printSongs(a.out, songs, a.settings.PreferRomaji)
	return nil
}

func cmdFavorite(ctx context.Context, a *app, args []string) error {
	return a.eachSong(ctx, "favorite", args, a.api.FavoriteSong, "Added %d to favorites.")
}

func cmdUnfavorite(ctx context.Context, a *app, args []string) error {
	return a.eachSong(ctx, "unfavorite", args, a.api.UnfavoriteSong, "Removed %d from favorites.")
}

func cmdRequest(ctx context.Context, a *app, args []string) error {
	return a.eachSong(ctx, "request", args, a.api.RequestSong, "Requested %d.")
}

// eachSong runs call for every song id in args on a dispatcher and prints
// one line per id, in argument order.
func (a *app) eachSong(ctx context.Context, name string, args []string, call func(context.Context, int) error, success string) error {
	ids, err := parseIDs(args)
	if err != nil || len(ids) == 0 {
		if err != nil {
			fmt.Fprintf(a.err, "Error: %v\n", err)
		}
		return a.usage(name)
	}

	results := make([]error, len(ids))
	var mu sync.Mutex

	d := api.NewDispatcher(a.settings.MaxConcurrent)
	for i, id := range ids {
		i, id := i, id
		api.EnqueueErr(d, ctx, func(ctx context.Context) error {
			return call(ctx, id)
		}, api.Callback[struct{}]{
			OnFailure: func(err error) {
				mu.Lock()
				results[i] = err
				mu.Unlock()
			},
		})
	}
	d.Wait()

	failed := 0
	for i, id := range ids {
		if results[i] != nil {
			failed++
			a.logger.Debug("song call failed", "command", name, "song", id, "err", results[i])
			fmt.Fprintf(a.err, "%d: %s\n", id, api.UserMessage(results[i]))
			continue
		}
		fmt.Fprintf(a.out, success+"\n", id)
	}
	if failed > 0 {
		return errReported
	}
	return nil
}

func cmdArtists(ctx context.Context, a *app, _ []string) error {
	artists, err := a.api.Artists(ctx)
	if err != nil {
		return err
	}
	for _, artist := range artists {
		fmt.Fprintf(a.out, "%6d  %s\n", artist.ID, artist.DisplayName(a.settings.PreferRomaji))
	}
	fmt.Fprintf(a.out, "%d artist(s)\n", len(artists))
	return nil
}

func cmdArtist(ctx context.Context, a *app, args []string) error {
	ids, err := parseIDs(args)
	if err != nil || len(ids) != 1 {
		return a.usage("artist")
	}

	artist, err := a.api.Artist(ctx, ids[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, artist.DisplayName(a.settings.PreferRomaji))
	if img := artist.ImageURL(); img != "" {
		fmt.Fprintln(a.out, img)
	}
	fmt.Fprintln(a.out)
	printSongs(a.out, artist.Songs, a.settings.PreferRomaji)
	return nil
}

func cmdNow(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("now")
	follow := fs.Bool("follow", false, "Keep printing every new song")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	gwCtx, cancel := context.WithCancel(ctx)
	gw := a.gateway()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gw.Run(gwCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for u := range gw.Updates() {
		if u.Err != nil {
			a.logger.Warn("gateway connection failed", "err", u.Err)
			continue
		}
		if !u.IsTrackChange() || u.Info.Song == nil {
			continue
		}
		printNowPlaying(a.out, u.Info, a.settings.PreferRomaji)
		if !*follow {
			return nil
		}
	}

	if *follow {
		return nil
	}
	return ctx.Err()
}

func cmdPlaylist(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("playlist")
	format := fs.String("format", a.settings.PlaylistFormat, "Playlist format: m3u, pls, wpl or zpl")
	all := fs.Bool("all", false, "Include every library, not just the configured one")
	output := fs.String("o", "", "Write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	settings := *a.settings
	settings.PlaylistFormat = strings.ToLower(*format)
	creator := audio.NewPlaylistCreator(settings.ToPlaylistFormat(), settings.M3UExtended)

	libs := []model.Library{a.library}
	if *all {
		libs = model.Libraries()
	}
	content := creator.CreatePlaylist("LISTEN.moe", audio.StreamEntries(libs...))

	if *output == "" {
		fmt.Fprint(a.out, content)
		return nil
	}

	path := *output
	if filepath.Ext(path) == "" {
		path += creator.Format().Extension()
	}
	if err := ioutils.WriteFileAtomic(ctx, path, []byte(content), 0644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created playlist %s\n", path)
	return nil
}

func cmdRecord(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("record")
	dir := fs.String("dir", a.settings.RecordDir, "Directory receiving the recorded songs")
	duration := fs.Duration("duration", 0, "Stop after this long (0 records until interrupted)")
	verbose := fs.Bool("v", false, "Show verbose progress")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	cfg := record.ConfigFromSettings(a.settings)
	cfg.Dir = *dir

	rec := record.NewRecorder(cfg, a.http, a.library, func(e record.ProgressEvent) {
		if e.Level == record.LevelVerbose && !*verbose {
			return
		}
		fmt.Fprintln(a.out, progressPrefix(e.Level)+e.Message)
	})

	fmt.Fprintf(a.out, "Recording LISTEN.moe %s into %s\n", a.library.DisplayName, cfg.Dir)

	gw := a.gateway()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Run(gctx)
	})
	g.Go(func() error {
		return rec.Run(gctx, gw.Updates())
	})

	err := g.Wait()
	received, songs := rec.GetProgress()
	fmt.Fprintf(a.out, "Recorded %d song(s), %.2f MB received\n", songs, float64(received)/1024/1024)

	// Stopping by interrupt or -duration is the normal end of a recording.
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printSongs(w io.Writer, songs []model.Song, romaji bool) {
	for _, s := range songs {
		heart := " "
		if s.Favorite {
			heart = "♥"
		}
		line := fmt.Sprintf("%6d %s %s - %s", s.ID, heart, s.ArtistsString(romaji), s.TitleString(romaji))
		if src := s.SourcesString(romaji); src != "" {
			line += " (" + src + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printNowPlaying(w io.Writer, info model.PlaybackInfo, romaji bool) {
	song := info.Song
	fmt.Fprintf(w, "Now playing: %s - %s\n", song.ArtistsString(romaji), song.TitleString(romaji))
	if src := song.SourcesString(romaji); src != "" {
		fmt.Fprintf(w, "  from %s\n", src)
	}
	if info.Requester != nil {
		name := info.Requester.DisplayName
		if name == "" {
			name = info.Requester.Username
		}
		fmt.Fprintf(w, "  requested by %s\n", name)
	}
	fmt.Fprintf(w, "  %d listener(s)\n", info.Listeners)
}

func progressPrefix(level record.ProgressLevel) string {
	switch level {
	case record.LevelError:
		return "✗ "
	case record.LevelWarning:
		return "! "
	case record.LevelSuccess:
		return "✓ "
	case record.LevelInfo:
		return "› "
	default:
		return "  "
	}
}
