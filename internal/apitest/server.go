// Package apitest runs an in-process fake of the radio's REST API, gateway
// and audio stream for tests.
//
// The fake issues real HS256 JWTs, gates user routes by bearer token, keeps
// favorites and request counters per user and counts every request by
// route, so tests can assert that a call did or did not reach the network.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/handiism/listenmoe-client/internal/model"
)

// DefaultRequests is the request allowance of a new user.
const DefaultRequests = 5

type user struct {
	id        uuid.UUID
	username  string
	email     string
	password  string
	otp       string
	requests  int
	favorites map[int]bool
}

// Server is the fake radio.
type Server struct {
	echo   *echo.Echo
	srv    *httptest.Server
	secret []byte

	mu        sync.Mutex
	users     map[string]*user
	songs     []model.SongListItem
	artists   map[int]model.Artist
	hits      map[string]int
	libraries []string
	queued    []int
	files     map[string][]byte

	gw     *gateway
	stream chan []byte
	done   chan struct{}
	once   sync.Once
}

// New starts a fake server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:  []byte(uuid.NewString()),
		users:   map[string]*user{},
		artists: map[int]model.Artist{},
		hits:    map[string]int{},
		files:   map[string][]byte{},
		stream:  make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	s.gw = newGateway()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.countHits)
	s.echo = e
	s.registerRoutes()

	s.srv = httptest.NewServer(e)
	t.Cleanup(s.Close)
	return s
}

// Close stops the server. Open streams and gateway connections are dropped.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.done)
		s.gw.closeAll()
		s.srv.Close()
	})
}

// URL returns the API base URL, ending in "/api/".
func (s *Server) URL() string {
	return s.srv.URL + "/api/"
}

// Client returns an HTTP client talking to the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// GatewayURL returns the websocket URL of the fake gateway.
func (s *Server) GatewayURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/gateway_v2"
}

// StreamURL returns the URL of the fake audio stream.
func (s *Server) StreamURL() string {
	return s.srv.URL + "/fallback"
}

// Library returns a library pointing at this server.
func (s *Server) Library() model.Library {
	return model.Library{
		Name:        model.Jpop.Name,
		DisplayName: model.Jpop.DisplayName,
		StreamURL:   s.StreamURL(),
		OpusURL:     s.srv.URL + "/stream",
		GatewayURL:  s.GatewayURL(),
	}
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(username, password string) uuid.UUID {
	return s.addUser(username, "", password, "")
}

// AddMFAUser registers an account whose login needs the one-time password otp.
func (s *Server) AddMFAUser(username, password, otp string) uuid.UUID {
	return s.addUser(username, "", password, otp)
}

func (s *Server) addUser(username, email, password, otp string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &user{
		id:        uuid.New(),
		username:  username,
		email:     email,
		password:  password,
		otp:       otp,
		requests:  DefaultRequests,
		favorites: map[int]bool{},
	}
	s.users[username] = u
	return u.id
}

// Token issues a valid auth token for username.
func (s *Server) Token(username string) string {
	s.mu.Lock()
	u := s.users[username]
	s.mu.Unlock()
	if u == nil {
		return ""
	}
	token, _ := s.issue(u, false)
	return token
}

// SetSongs replaces the song listing.
func (s *Server) SetSongs(songs ...model.SongListItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.songs = append([]model.SongListItem(nil), songs...)
}

// AddArtist adds an artist to the listing.
func (s *Server) AddArtist(a model.Artist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artists[a.ID] = a
}

// Hits returns how often route was called. route is "METHOD /path" with
// echo path parameters, e.g. "POST /api/favorites/:id".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits returns the number of requests the server received.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// Favorites returns the song ids username has favorited, sorted.
func (s *Server) Favorites(username string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[username]
	if u == nil {
		return nil
	}
	ids := make([]int, 0, len(u.favorites))
	for id := range u.favorites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Queued returns the requested song ids in request order.
func (s *Server) Queued() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.queued...)
}

// Libraries returns the library header of every scoped request.
func (s *Server) Libraries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.libraries...)
}

// Broadcast pushes a track update to every gateway connection and keeps it
// as the current track for new connections.
func (s *Server) Broadcast(info model.PlaybackInfo) {
	s.gw.broadcast(info)
}

// SetHeartbeat sets the heartbeat interval announced to new gateway
// connections.
func (s *Server) SetHeartbeat(d time.Duration) {
	s.gw.setHeartbeat(d)
}

// GatewayStats reports connections, heartbeats and auth frames seen.
func (s *Server) GatewayStats() (connections, heartbeats, auths int) {
	return s.gw.stats()
}

// DropGateway closes every open gateway connection.
func (s *Server) DropGateway() {
	s.gw.closeAll()
}

// SetFile serves data at FileURL(name), e.g. an album cover.
func (s *Server) SetFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
}

// FileURL returns the URL of a file added with SetFile.
func (s *Server) FileURL(name string) string {
	return s.srv.URL + "/files/" + name
}

// WriteStream sends data to the open audio stream.
func (s *Server) WriteStream(data []byte) {
	s.stream <- data
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")
	api.POST("/login", s.handleLogin)
	api.POST("/login/mfa", s.handleMFA, s.requireToken(true))
	api.POST("/register", s.handleRegister)

	authed := api.Group("", s.requireToken(false))
	authed.GET("/users/@me", s.handleMe)
	authed.GET("/favorites/@me", s.handleFavorites)
	authed.POST("/favorites/:id", s.handleFavorite)
	authed.DELETE("/favorites/:id", s.handleUnfavorite)
	authed.POST("/requests/:id", s.handleRequest)
	authed.GET("/songs", s.handleSongs)
	authed.GET("/artists", s.handleArtists)
	authed.GET("/artists/:id", s.handleArtist)

	s.echo.GET("/gateway_v2", s.gw.handle)
	s.echo.GET("/fallback", s.handleStream)
	s.echo.GET("/files/:name", s.handleFile)
}

func (s *Server) countHits(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.hits[c.Request().Method+" "+c.Path()]++
		if lib := c.Request().Header.Get("library"); lib != "" {
			s.libraries = append(s.libraries, lib)
		}
		s.mu.Unlock()
		return next(c)
	}
}

type claims struct {
	jwt.StandardClaims
	Username string `json:"username"`
	MFA      bool   `json:"mfa,omitempty"`
}

func (s *Server) issue(u *user, mfa bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		StandardClaims: jwt.StandardClaims{
			Subject:  u.id.String(),
			IssuedAt: time.Now().Unix(),
		},
		Username: u.username,
		MFA:      mfa,
	})
	return token.SignedString(s.secret)
}

// requireToken accepts a bearer JWT signed by the server. mfa selects
// whether the intermediate MFA token or a full auth token is expected.
func (s *Server) requireToken(mfa bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if raw == "" {
				return fail(c, http.StatusUnauthorized, "api-auth-error")
			}

			var cl claims
			_, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return s.secret, nil
			})
			if err != nil || cl.MFA != mfa {
				return fail(c, http.StatusUnauthorized, "api-auth-error")
			}

			s.mu.Lock()
			u := s.users[cl.Username]
			s.mu.Unlock()
			if u == nil {
				return fail(c, http.StatusUnauthorized, "api-auth-error")
			}

			c.Set("user", u)
			return next(c)
		}
	}
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": false, "message": message})
}

func ok(c echo.Context, body map[string]any) error {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleLogin(c echo.Context) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return fail(c, http.StatusBadRequest, "error")
	}

	s.mu.Lock()
	u := s.users[body.Username]
	s.mu.Unlock()

	switch {
	case u == nil:
		return fail(c, http.StatusUnauthorized, "invalid-user")
	case u.password != body.Password:
		return fail(c, http.StatusUnauthorized, "invalid-password")
	}

	mfa := u.otp != ""
	token, err := s.issue(u, mfa)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "error")
	}
	return ok(c, map[string]any{"token": token, "mfa": mfa})
}

func (s *Server) handleMFA(c echo.Context) error {
	u := c.Get("user").(*user)

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return fail(c, http.StatusBadRequest, "error")
	}
	if body.Token != u.otp {
		return fail(c, http.StatusUnauthorized, "invalid-mfa")
	}

	token, err := s.issue(u, false)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "error")
	}
	return ok(c, map[string]any{"token": token})
}

func (s *Server) handleRegister(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return fail(c, http.StatusBadRequest, "error")
	}
	if body.Username == "" || body.Password == "" || body.Email == "" {
		return fail(c, http.StatusBadRequest, "All fields are required.")
	}

	s.mu.Lock()
	_, taken := s.users[body.Username]
	s.mu.Unlock()
	if taken {
		return fail(c, http.StatusConflict, "Username is already taken.")
	}

	s.addUser(body.Username, body.Email, body.Password, "")
	return ok(c, map[string]any{"message": "Registered. Check your email to verify your account."})
}

func (s *Server) handleMe(c echo.Context) error {
	u := c.Get("user").(*user)

	s.mu.Lock()
	profile := model.User{
		UUID:              u.id.String(),
		Username:          u.username,
		DisplayName:       u.username,
		RequestsRemaining: u.requests,
	}
	s.mu.Unlock()

	return ok(c, map[string]any{"user": profile})
}

func (s *Server) handleFavorites(c echo.Context) error {
	u := c.Get("user").(*user)

	s.mu.Lock()
	favorites := []model.Song{}
	for _, item := range s.songs {
		if u.favorites[item.ID] {
			favorites = append(favorites, item.ToSong())
		}
	}
	s.mu.Unlock()

	return ok(c, map[string]any{"favorites": favorites})
}

func (s *Server) handleFavorite(c echo.Context) error {
	return s.setFavorite(c, true)
}

func (s *Server) handleUnfavorite(c echo.Context) error {
	return s.setFavorite(c, false)
}

func (s *Server) setFavorite(c echo.Context, favorite bool) error {
	u := c.Get("user").(*user)
	id, found := s.songParam(c)
	if !found {
		return fail(c, http.StatusNotFound, "Song not found.")
	}

	s.mu.Lock()
	if favorite {
		u.favorites[id] = true
	} else {
		delete(u.favorites, id)
	}
	s.mu.Unlock()

	return ok(c, nil)
}

func (s *Server) handleRequest(c echo.Context) error {
	u := c.Get("user").(*user)
	id, found := s.songParam(c)
	if !found {
		return fail(c, http.StatusNotFound, "Song not found.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u.requests <= 0 {
		return fail(c, http.StatusForbidden, "You have no requests left.")
	}
	u.requests--
	s.queued = append(s.queued, id)

	return ok(c, nil)
}

func (s *Server) handleSongs(c echo.Context) error {
	s.mu.Lock()
	songs := append([]model.SongListItem{}, s.songs...)
	s.mu.Unlock()

	return ok(c, map[string]any{"songs": songs})
}

func (s *Server) handleArtists(c echo.Context) error {
	s.mu.Lock()
	artists := make([]model.ArtistSummary, 0, len(s.artists))
	for _, a := range s.artists {
		artists = append(artists, a.ArtistSummary)
	}
	s.mu.Unlock()

	sort.Slice(artists, func(i, j int) bool { return artists[i].ID < artists[j].ID })
	return ok(c, map[string]any{"artists": artists})
}

func (s *Server) handleArtist(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "error")
	}

	s.mu.Lock()
	a, found := s.artists[id]
	s.mu.Unlock()
	if !found {
		return fail(c, http.StatusNotFound, "Artist not found.")
	}
	return ok(c, map[string]any{"artist": a})
}

func (s *Server) songParam(c echo.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.songs {
		if item.ID == id {
			return id, true
		}
	}
	return 0, false
}

func (s *Server) handleFile(c echo.Context) error {
	s.mu.Lock()
	data, found := s.files[c.Param("name")]
	s.mu.Unlock()
	if !found {
		return c.NoContent(http.StatusNotFound)
	}
	return c.Blob(http.StatusOK, http.DetectContentType(data), data)
}

// handleStream serves whatever WriteStream sends until the client or the
// server goes away.
func (s *Server) handleStream(c echo.Context) error {
	w := c.Response()
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-s.done:
			return nil
		case data := <-s.stream:
			if _, err := w.Write(data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
