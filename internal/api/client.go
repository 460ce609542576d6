package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/handiism/listenmoe-client/internal/auth"
	"github.com/handiism/listenmoe-client/internal/http"
	"github.com/handiism/listenmoe-client/internal/model"
)

// DefaultBaseURL is the public radio API.
const DefaultBaseURL = "https://listen.moe/api/"

// Client calls the radio API on behalf of one session.
//
// Every call that needs a user (everything except Authenticate,
// AuthenticateMFA and Register) checks the session first and returns
// ErrAuthRequired without touching the network when it is not authenticated.
//
// Example:
//
//	session := auth.NewSession(store, nil)
//	client := api.NewClient(http.NewClient(http.WithBaseURL(api.DefaultBaseURL)), session)
//
//	songs, err := client.Search(ctx, "halation")
type Client struct {
	http    *http.Client
	session *auth.Session
	library model.Library
	songs   *SongsCache
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLibrary selects the library song, favorite, request and artist calls
// are scoped to. Defaults to model.Jpop.
func WithLibrary(lib model.Library) Option {
	return func(c *Client) {
		if lib.Name != "" {
			c.library = lib
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client sending requests through hc.
func NewClient(hc *http.Client, session *auth.Session, opts ...Option) *Client {
	c := &Client{
		http:    hc,
		session: session,
		library: model.Jpop,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.songs = NewSongsCache(c.fetchSongs)
	return c
}

// Library returns the library the client is scoped to.
func (c *Client) Library() model.Library {
	return c.library
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *auth.Session {
	return c.session
}

// LoginResult is the outcome of a successful login request.
type LoginResult struct {
	// Token is the auth token, or the intermediate MFA token when
	// MFARequired is set.
	Token string

	// MFARequired means AuthenticateMFA must be called with a one-time
	// password before the session is authenticated.
	MFARequired bool
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r *response) envelope() *response { return r }

type enveloped interface {
	envelope() *response
}

type authResponse struct {
	response
	Token string `json:"token"`
	MFA   bool   `json:"mfa"`
}

type userResponse struct {
	response
	User model.User `json:"user"`
}

type favoritesResponse struct {
	response
	Favorites []model.Song `json:"favorites"`
}

type songsResponse struct {
	response
	Songs []model.SongListItem `json:"songs"`
}

type artistsResponse struct {
	response
	Artists []model.ArtistSummary `json:"artists"`
}

type artistResponse struct {
	response
	Artist model.Artist `json:"artist"`
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type mfaBody struct {
	Token string `json:"token"`
}

type registerBody struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticate logs in with username and password.
//
// On success the auth token is stored in the session. When the account has
// MFA enabled the intermediate token is stored instead and the result has
// MFARequired set.
func (c *Client) Authenticate(ctx context.Context, username, password string) (LoginResult, error) {
	var resp authResponse
	err := c.call(ctx, http.Request{
		Method: "POST",
		Path:   "login",
		Body:   loginBody{Username: username, Password: password},
	}, &resp)
	if err != nil {
		return LoginResult{}, err
	}

	if resp.MFA {
		if err := c.session.SetMFAToken(resp.Token); err != nil {
			return LoginResult{}, fmt.Errorf("api: store mfa token: %w", err)
		}
		return LoginResult{Token: resp.Token, MFARequired: true}, nil
	}

	if err := c.session.SetAuthToken(resp.Token); err != nil {
		return LoginResult{}, fmt.Errorf("api: store token: %w", err)
	}
	return LoginResult{Token: resp.Token}, nil
}

// AuthenticateMFA completes a login that required MFA. The returned token
// replaces the intermediate MFA token in the session.
func (c *Client) AuthenticateMFA(ctx context.Context, otp string) (string, error) {
	var resp authResponse
	err := c.call(ctx, http.Request{
		Method: "POST",
		Path:   "login/mfa",
		Header: map[string]string{"Authorization": c.session.MFATokenWithPrefix()},
		Body:   mfaBody{Token: otp},
	}, &resp)
	if err != nil {
		return "", err
	}

	if err := c.session.SetAuthToken(resp.Token); err != nil {
		return "", fmt.Errorf("api: store token: %w", err)
	}
	if err := c.session.ClearMFAToken(); err != nil {
		return "", fmt.Errorf("api: clear mfa token: %w", err)
	}
	return resp.Token, nil
}

// Register creates an account and returns the server's message.
func (c *Client) Register(ctx context.Context, email, username, password string) (string, error) {
	var resp response
	err := c.call(ctx, http.Request{
		Method: "POST",
		Path:   "register",
		Body:   registerBody{Email: email, Username: username, Password: password},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UserInfo returns the authenticated user's profile.
func (c *Client) UserInfo(ctx context.Context) (*model.User, error) {
	var resp userResponse
	if err := c.gated(ctx, http.Request{Path: "users/@me"}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UserFavorites returns the user's favorite songs in the client's library.
// Every returned song has Favorite set.
func (c *Client) UserFavorites(ctx context.Context) ([]model.Song, error) {
	var resp favoritesResponse
	if err := c.gated(ctx, c.scoped(http.Request{Path: "favorites/@me"}), &resp); err != nil {
		return nil, err
	}

	favorites := resp.Favorites
	if favorites == nil {
		favorites = []model.Song{}
	}
	for i := range favorites {
		favorites[i].SetFavorite(true)
	}
	return favorites, nil
}

// IsFavorite reports whether songID is among the user's favorites.
func (c *Client) IsFavorite(ctx context.Context, songID int) (bool, error) {
	favorites, err := c.UserFavorites(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range favorites {
		if s.ID == songID {
			return true, nil
		}
	}
	return false, nil
}

// FavoriteSong adds songID to the user's favorites.
func (c *Client) FavoriteSong(ctx context.Context, songID int) error {
	return c.gated(ctx, http.Request{Method: "POST", Path: songPath("favorites", songID)}, &response{})
}

// UnfavoriteSong removes songID from the user's favorites.
func (c *Client) UnfavoriteSong(ctx context.Context, songID int) error {
	return c.gated(ctx, http.Request{Method: "DELETE", Path: songPath("favorites", songID)}, &response{})
}

// ToggleFavorite unfavorites the song when isFavorite is set and favorites
// it otherwise.
func (c *Client) ToggleFavorite(ctx context.Context, songID int, isFavorite bool) error {
	if isFavorite {
		return c.UnfavoriteSong(ctx, songID)
	}
	return c.FavoriteSong(ctx, songID)
}

// ToggleSongFavorite flips song's favorite state on the server and, once the
// call succeeded, on song itself. song is left untouched on failure.
func (c *Client) ToggleSongFavorite(ctx context.Context, song *model.Song) error {
	if err := c.ToggleFavorite(ctx, song.ID, song.Favorite); err != nil {
		return err
	}
	song.SetFavorite(!song.Favorite)
	return nil
}

// RequestSong queues songID on the radio.
func (c *Client) RequestSong(ctx context.Context, songID int) error {
	return c.gated(ctx, c.scoped(http.Request{Method: "POST", Path: songPath("requests", songID)}), &response{})
}

// Songs returns the full song listing. The listing is fetched once per
// Client and served from memory afterwards.
func (c *Client) Songs(ctx context.Context) ([]model.SongListItem, error) {
	if !c.session.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return c.songs.Songs(ctx)
}

// Search filters the cached song listing by query. An empty query returns
// every song; no match returns an empty slice.
func (c *Client) Search(ctx context.Context, query string) ([]model.Song, error) {
	if !c.session.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return c.songs.Search(ctx, query)
}

// Artists returns all artists of the library.
func (c *Client) Artists(ctx context.Context) ([]model.ArtistSummary, error) {
	var resp artistsResponse
	if err := c.gated(ctx, c.scoped(http.Request{Path: "artists"}), &resp); err != nil {
		return nil, err
	}
	if resp.Artists == nil {
		return []model.ArtistSummary{}, nil
	}
	return resp.Artists, nil
}

// Artist returns one artist with their songs.
func (c *Client) Artist(ctx context.Context, artistID int) (*model.Artist, error) {
	var resp artistResponse
	if err := c.gated(ctx, c.scoped(http.Request{Path: songPath("artists", artistID)}), &resp); err != nil {
		return nil, err
	}
	return &resp.Artist, nil
}

func (c *Client) fetchSongs(ctx context.Context) ([]model.SongListItem, error) {
	var resp songsResponse
	if err := c.gated(ctx, c.scoped(http.Request{Path: "songs"}), &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched song listing", "library", c.library.Name, "songs", len(resp.Songs))
	return resp.Songs, nil
}

// gated sends r with the session token, failing with ErrAuthRequired
// before any request when the session is not authenticated.
func (c *Client) gated(ctx context.Context, r http.Request, out enveloped) error {
	if !c.session.IsAuthenticated() {
		return ErrAuthRequired
	}
	if r.Header == nil {
		r.Header = map[string]string{}
	}
	r.Header["Authorization"] = c.session.AuthTokenWithPrefix()
	return c.call(ctx, r, out)
}

func (c *Client) scoped(r http.Request) http.Request {
	if r.Header == nil {
		r.Header = map[string]string{}
	}
	r.Header["library"] = c.library.Name
	return r
}

func (c *Client) call(ctx context.Context, r http.Request, out enveloped) error {
	if err := c.http.DoJSON(ctx, r, out); err != nil {
		return wrapTransportError(err)
	}
	if env := out.envelope(); !env.Success {
		return newError(0, env.Message, nil)
	}
	return nil
}

func wrapTransportError(err error) error {
	var statusErr *http.StatusError
	if !errors.As(err, &statusErr) {
		return &Error{Code: CodeGeneric, Err: err}
	}

	var env response
	_ = json.Unmarshal(statusErr.Body, &env)
	apiErr := newError(statusErr.StatusCode, env.Message, err)
	if apiErr.Code == CodeGeneric && statusErr.StatusCode == 401 {
		apiErr.Code = CodeAuthRequired
	}
	return apiErr
}

// newError maps a server message onto an error code. The API reports
// well-known failures with the code itself as message.
func newError(status int, message string, cause error) *Error {
	code := CodeGeneric
	switch message {
	case CodeAuthRequired, CodeInvalidUser, CodeInvalidPassword, CodeInvalidMFA:
		code = message
	}
	return &Error{Code: code, Message: message, Status: status, Err: cause}
}

func songPath(prefix string, id int) string {
	return prefix + "/" + strconv.Itoa(id)
}
