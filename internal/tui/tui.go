// Package tui provides a Bubble Tea terminal user interface for the LISTEN.moe radio.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/handiism/listenmoe-client/internal/api"
	"github.com/handiism/listenmoe-client/internal/gateway"
	"github.com/handiism/listenmoe-client/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	songStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			Underline(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))
)

// Tab is one of the browse screens.
type Tab int

const (
	TabNowPlaying Tab = iota
	TabSearch
	TabFavorites
)

var tabs = []Tab{TabNowPlaying, TabSearch, TabFavorites}

func (t Tab) String() string {
	switch t {
	case TabSearch:
		return "Search"
	case TabFavorites:
		return "Favorites"
	default:
		return "Now Playing"
	}
}

// State represents the current UI state.
type State int

const (
	StateBrowse State = iota
	StateLogin
	StateMFA
)

// StatusLine is the outcome of the last user action.
type StatusLine struct {
	Message string
	Err     bool
}

const maxListRows = 12

// Options wires the model to the radio.
type Options struct {
	API *api.Client

	// Gateway delivers now-playing updates. Nil leaves Now Playing empty.
	Gateway *gateway.Client

	PreferRomaji bool
	Clock        clockwork.Clock
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state State
	tab   Tab

	username textinput.Model
	password textinput.Model
	otp      textinput.Model
	search   textinput.Model
	spinner  spinner.Model
	progress progress.Model

	api          *api.Client
	gateway      *gateway.Client
	clock        clockwork.Clock
	preferRomaji bool

	ctx    context.Context
	cancel context.CancelFunc

	user       *model.User
	playing    *model.PlaybackInfo
	playingFav bool
	results    []model.Song
	favorites  []model.Song
	cursor     int
	loading    int
	status     StatusLine

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(opts Options) Model {
	username := textinput.New()
	username.Placeholder = "username or email"
	username.CharLimit = 100
	username.Width = 40

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 200
	password.Width = 40

	otp := textinput.New()
	otp.Placeholder = "123456"
	otp.CharLimit = 10
	otp.Width = 12

	search := textinput.New()
	search.Placeholder = "title, artist, album or source"
	search.CharLimit = 200
	search.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:        StateBrowse,
		tab:          TabNowPlaying,
		username:     username,
		password:     password,
		otp:          otp,
		search:       search,
		spinner:      sp,
		progress:     prog,
		api:          opts.API,
		gateway:      opts.Gateway,
		clock:        clock,
		preferRomaji: opts.PreferRomaji,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.runGateway(), m.waitForUpdate(), m.tick()}
	if m.api.Session().IsAuthenticated() {
		cmds = append(cmds, m.loadUser())
	}
	return tea.Batch(cmds...)
}

// Message types
type (
	// GatewayMsg carries one gateway update. Closed is set once the
	// gateway stopped for good.
	GatewayMsg struct {
		Update gateway.Update
		Closed bool
	}

	// TickMsg redraws the song progress.
	TickMsg struct{}

	// LoginDoneMsg is sent when the username/password step completes.
	LoginDoneMsg struct {
		Result api.LoginResult
		Err    error
	}

	// MFADoneMsg is sent when the one-time password step completes.
	MFADoneMsg struct {
		Err error
	}

	UserMsg struct {
		User *model.User
		Err  error
	}

	SearchDoneMsg struct {
		Query string
		Songs []model.Song
		Err   error
	}

	FavoritesMsg struct {
		Songs []model.Song
		Err   error
	}

	// FavoriteStatusMsg reports whether the song on air is a favorite.
	FavoriteStatusMsg struct {
		SongID   int
		Favorite bool
		Err      error
	}

	// FavoriteToggledMsg is sent when a favorite toggle completes. Favorite
	// is the new state.
	FavoriteToggledMsg struct {
		SongID   int
		Favorite bool
		Err      error
	}

	RequestDoneMsg struct {
		Title string
		Err   error
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		switch m.state {
		case StateLogin:
			return m.updateLogin(msg)
		case StateMFA:
			return m.updateMFA(msg)
		default:
			return m.updateBrowse(msg)
		}

	case spinner.TickMsg:
		if m.loading > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case GatewayMsg:
		if msg.Closed {
			m.setStatus("Disconnected from the radio.", true)
			break
		}
		if msg.Update.Err != nil {
			m.setStatus("Lost the radio connection, reconnecting...", true)
		} else if msg.Update.IsTrackChange() {
			info := msg.Update.Info
			m.playing = &info
			m.playingFav = false
			if info.Song != nil && m.api.Session().IsAuthenticated() {
				cmds = append(cmds, m.checkFavorite(info.Song.ID))
			}
		}
		cmds = append(cmds, m.waitForUpdate())

	case TickMsg:
		if m.playing != nil {
			cmds = append(cmds, m.progress.SetPercent(m.playing.Progress(m.clock.Now())))
		}
		cmds = append(cmds, m.tick())

	case LoginDoneMsg:
		m.done()
		switch {
		case msg.Err != nil:
			m.setError(msg.Err)
		case msg.Result.MFARequired:
			m.state = StateMFA
			m.username.Blur()
			m.password.Blur()
			m.otp.SetValue("")
			m.otp.Focus()
			m.setStatus("Enter the one-time password from your authenticator.", false)
			cmds = append(cmds, textinput.Blink)
		default:
			cmds = append(cmds, m.loggedIn()...)
		}

	case MFADoneMsg:
		m.done()
		if msg.Err != nil {
			m.setError(msg.Err)
			break
		}
		cmds = append(cmds, m.loggedIn()...)

	case UserMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			break
		}
		m.user = msg.User
		m.setStatus("Logged in as "+msg.User.Name()+".", false)

	case SearchDoneMsg:
		m.done()
		if msg.Err != nil {
			m.setError(msg.Err)
			break
		}
		m.results = msg.Songs
		if m.tab == TabSearch {
			m.cursor = 0
		}
		m.setStatus(fmt.Sprintf("%d song(s) found.", len(msg.Songs)), false)

	case FavoritesMsg:
		m.done()
		if msg.Err != nil {
			m.setError(msg.Err)
			break
		}
		m.favorites = msg.Songs
		if m.tab == TabFavorites {
			m.cursor = 0
		}
		m.setStatus(fmt.Sprintf("%d favorite(s).", len(msg.Songs)), false)

	case FavoriteStatusMsg:
		if msg.Err == nil && m.playing != nil && m.playing.Song != nil && m.playing.Song.ID == msg.SongID {
			m.playingFav = msg.Favorite
		}

	case FavoriteToggledMsg:
		m.done()
		if msg.Err != nil {
			m.setError(msg.Err)
			break
		}
		m.applyFavorite(msg.SongID, msg.Favorite)
		if msg.Favorite {
			m.setStatus("Added to favorites.", false)
		} else {
			m.setStatus("Removed from favorites.", false)
		}

	case RequestDoneMsg:
		m.done()
		if msg.Err != nil {
			m.setError(msg.Err)
			break
		}
		m.setStatus("Requested "+msg.Title+".", false)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tab == TabSearch && m.search.Focused() {
		switch msg.String() {
		case "enter":
			m.search.Blur()
			return m, m.begin(m.searchSongs(m.search.Value()))
		case "esc":
			m.search.Blur()
			return m, nil
		case "tab", "shift+tab":
			m.search.Blur()
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit

	case "tab", "right":
		return m.switchTab(tabs[(int(m.tab)+1)%len(tabs)])

	case "shift+tab", "left":
		return m.switchTab(tabs[(int(m.tab)+len(tabs)-1)%len(tabs)])

	case "/":
		if m.tab == TabSearch {
			m.search.Focus()
			return m, textinput.Blink
		}

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.list())-1 {
			m.cursor++
		}

	case "f":
		if song := m.selected(); song != nil {
			return m, m.begin(m.toggleFavorite(*song))
		}

	case "r":
		if m.tab != TabNowPlaying {
			if song := m.selected(); song != nil {
				return m, m.begin(m.requestSong(*song))
			}
		}

	case "R":
		if m.tab == TabFavorites {
			return m, m.begin(m.loadFavorites())
		}

	case "l":
		if m.api.Session().IsAuthenticated() {
			m.setStatus("Already logged in.", false)
			return m, nil
		}
		m.state = StateLogin
		m.username.SetValue("")
		m.password.SetValue("")
		m.username.Focus()
		m.password.Blur()
		return m, textinput.Blink

	case "o":
		if err := m.api.Session().Logout(); err != nil {
			m.setError(err)
			return m, nil
		}
		m.user = nil
		m.favorites = nil
		m.playingFav = false
		m.setStatus("Logged out.", false)
	}

	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateBrowse
		m.username.Blur()
		m.password.Blur()
		return m, nil

	case "tab", "shift+tab", "up", "down":
		m.toggleLoginFocus()
		return m, textinput.Blink

	case "enter":
		if m.username.Focused() && m.password.Value() == "" {
			m.toggleLoginFocus()
			return m, textinput.Blink
		}
		username, password := strings.TrimSpace(m.username.Value()), m.password.Value()
		if username == "" || password == "" {
			m.setStatus("Enter your username and password.", true)
			return m, nil
		}
		return m, m.begin(m.login(username, password))
	}

	var cmd tea.Cmd
	if m.username.Focused() {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) updateMFA(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		_ = m.api.Session().ClearMFAToken()
		m.state = StateBrowse
		m.otp.Blur()
		m.setStatus("Login cancelled.", false)
		return m, nil

	case "enter":
		otp := strings.TrimSpace(m.otp.Value())
		if otp == "" {
			m.setStatus("Enter the one-time password.", true)
			return m, nil
		}
		return m, m.begin(m.verifyMFA(otp))
	}

	var cmd tea.Cmd
	m.otp, cmd = m.otp.Update(msg)
	return m, cmd
}

func (m Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	m.tab = tab
	m.cursor = 0
	switch tab {
	case TabSearch:
		m.search.Focus()
		return m, textinput.Blink
	case TabFavorites:
		m.search.Blur()
		if m.favorites == nil {
			return m, m.begin(m.loadFavorites())
		}
	default:
		m.search.Blur()
	}
	return m, nil
}

func (m *Model) toggleLoginFocus() {
	if m.username.Focused() {
		m.username.Blur()
		m.password.Focus()
	} else {
		m.password.Blur()
		m.username.Focus()
	}
}

// loggedIn leaves the login form and loads the user's data.
func (m *Model) loggedIn() []tea.Cmd {
	m.state = StateBrowse
	m.username.Blur()
	m.password.Blur()
	m.otp.Blur()
	m.password.SetValue("")
	m.otp.SetValue("")
	m.favorites = nil

	cmds := []tea.Cmd{m.loadUser(), m.authenticateGateway()}
	if m.playing != nil && m.playing.Song != nil {
		cmds = append(cmds, m.checkFavorite(m.playing.Song.ID))
	}
	return cmds
}

// begin counts an API call as in flight and starts the spinner.
func (m *Model) begin(cmd tea.Cmd) tea.Cmd {
	m.loading++
	if m.loading == 1 {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *Model) done() {
	if m.loading > 0 {
		m.loading--
	}
}

func (m *Model) setStatus(message string, isErr bool) {
	m.status = StatusLine{Message: message, Err: isErr}
}

func (m *Model) setError(err error) {
	m.setStatus(api.UserMessage(err), true)
}

func (m *Model) applyFavorite(songID int, favorite bool) {
	for i := range m.results {
		if m.results[i].ID == songID {
			m.results[i].SetFavorite(favorite)
		}
	}
	for i := range m.favorites {
		if m.favorites[i].ID == songID {
			m.favorites[i].SetFavorite(favorite)
		}
	}
	if m.playing != nil && m.playing.Song != nil && m.playing.Song.ID == songID {
		m.playingFav = favorite
	}
}

func (m Model) list() []model.Song {
	switch m.tab {
	case TabSearch:
		return m.results
	case TabFavorites:
		return m.favorites
	}
	return nil
}

// selected returns a copy of the song the cursor is on, or the song on air
// on the Now Playing tab.
func (m Model) selected() *model.Song {
	if m.tab == TabNowPlaying {
		if m.playing == nil || m.playing.Song == nil {
			return nil
		}
		song := *m.playing.Song
		song.Favorite = m.playingFav
		return &song
	}

	list := m.list()
	if m.cursor < 0 || m.cursor >= len(list) {
		return nil
	}
	song := list[m.cursor]
	return &song
}

// tick returns a command to redraw the song progress.
func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) runGateway() tea.Cmd {
	if m.gateway == nil {
		return nil
	}
	gw, ctx := m.gateway, m.ctx
	return func() tea.Msg {
		_ = gw.Run(ctx)
		return nil
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	if m.gateway == nil {
		return nil
	}
	updates := m.gateway.Updates()
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return GatewayMsg{Closed: true}
		}
		return GatewayMsg{Update: u}
	}
}

// authenticateGateway sends the new token on the open gateway connection.
func (m Model) authenticateGateway() tea.Cmd {
	if m.gateway == nil {
		return nil
	}
	gw := m.gateway
	return func() tea.Msg {
		_ = gw.Authenticate()
		return nil
	}
}

func (m Model) login(username, password string) tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		res, err := client.Authenticate(ctx, username, password)
		return LoginDoneMsg{Result: res, Err: err}
	}
}

func (m Model) verifyMFA(otp string) tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		_, err := client.AuthenticateMFA(ctx, otp)
		return MFADoneMsg{Err: err}
	}
}

func (m Model) loadUser() tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		user, err := client.UserInfo(ctx)
		return UserMsg{User: user, Err: err}
	}
}

func (m Model) searchSongs(query string) tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		songs, err := client.Search(ctx, query)
		return SearchDoneMsg{Query: query, Songs: songs, Err: err}
	}
}

func (m Model) loadFavorites() tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		songs, err := client.UserFavorites(ctx)
		return FavoritesMsg{Songs: songs, Err: err}
	}
}

func (m Model) checkFavorite(songID int) tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		fav, err := client.IsFavorite(ctx, songID)
		return FavoriteStatusMsg{SongID: songID, Favorite: fav, Err: err}
	}
}

func (m Model) toggleFavorite(song model.Song) tea.Cmd {
	client, ctx := m.api, m.ctx
	return func() tea.Msg {
		err := client.ToggleFavorite(ctx, song.ID, song.Favorite)
		return FavoriteToggledMsg{SongID: song.ID, Favorite: !song.Favorite, Err: err}
	}
}

func (m Model) requestSong(song model.Song) tea.Cmd {
	client, ctx, title := m.api, m.ctx, song.TitleString(m.preferRomaji)
	return func() tea.Msg {
		err := client.RequestSong(ctx, song.ID)
		return RequestDoneMsg{Title: title, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("🎵 LISTEN.moe " + m.api.Library().DisplayName))
	b.WriteString("\n")
	if m.user != nil {
		b.WriteString(dimStyle.Render("Logged in as " + m.user.Name()))
	} else if m.api.Session().IsAuthenticated() {
		b.WriteString(dimStyle.Render("Logged in"))
	} else {
		b.WriteString(dimStyle.Render("Not logged in"))
	}
	b.WriteString("\n\n")

	switch m.state {
	case StateLogin:
		b.WriteString(m.viewLogin())
	case StateMFA:
		b.WriteString(m.viewMFA())
	default:
		b.WriteString(m.viewTabs())
		b.WriteString("\n\n")
		switch m.tab {
		case TabSearch:
			b.WriteString(m.viewSearch())
		case TabFavorites:
			b.WriteString(m.viewSongs(m.favorites, "No favorites yet."))
		default:
			b.WriteString(m.viewNowPlaying())
		}
	}

	// Status
	b.WriteString("\n")
	if m.loading > 0 {
		b.WriteString(m.spinner.View() + " ")
	}
	if m.status.Message != "" {
		if m.status.Err {
			b.WriteString(errorStyle.Render("✗ " + m.status.Message))
		} else {
			b.WriteString(successStyle.Render("✓ " + m.status.Message))
		}
	}
	b.WriteString("\n\n")

	// Footer
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewTabs() string {
	names := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t == m.tab {
			names = append(names, activeTabStyle.Render(t.String()))
		} else {
			names = append(names, tabStyle.Render(t.String()))
		}
	}
	return strings.Join(names, dimStyle.Render(" │ "))
}

func (m Model) viewNowPlaying() string {
	if m.playing == nil || m.playing.Song == nil {
		return subtitleStyle.Render("Waiting for the radio...") + "\n"
	}

	info := m.playing
	song := info.Song

	var body strings.Builder
	heart := "♡"
	if m.playingFav {
		heart = "♥"
	}
	body.WriteString(songStyle.Render(heart + " " + song.TitleString(m.preferRomaji)))
	body.WriteString("\n")
	body.WriteString(song.ArtistsString(m.preferRomaji))
	if src := song.SourcesString(m.preferRomaji); src != "" {
		body.WriteString("\n" + dimStyle.Render(src))
	}
	if album := song.AlbumsString(m.preferRomaji); album != "" {
		body.WriteString("\n" + dimStyle.Render(album))
	}
	body.WriteString("\n\n")

	body.WriteString(m.progress.View())
	body.WriteString("\n")
	elapsed := info.Elapsed(m.clock.Now())
	if song.Duration > 0 && elapsed > time.Duration(song.Duration)*time.Second {
		elapsed = time.Duration(song.Duration) * time.Second
	}
	body.WriteString(infoStyle.Render(fmt.Sprintf("%s / %s | %d listener(s)",
		formatDuration(elapsed), formatDuration(time.Duration(song.Duration)*time.Second), info.Listeners)))

	if info.Requester != nil {
		name := info.Requester.DisplayName
		if name == "" {
			name = info.Requester.Username
		}
		body.WriteString("\n" + infoStyle.Render("Requested by "+name))
	}
	if info.Event != nil && info.Event.Name != "" {
		body.WriteString("\n" + infoStyle.Render("Event: "+info.Event.Name))
	}
	if last := info.LastSong(); last != nil {
		body.WriteString("\n\n" + dimStyle.Render("Previously: "+last.ArtistsString(m.preferRomaji)+" - "+last.TitleString(m.preferRomaji)))
	}

	return boxStyle.Render(body.String()) + "\n"
}

func (m Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(m.search.View())
	b.WriteString("\n\n")
	if m.results == nil {
		b.WriteString(dimStyle.Render("Press enter to list every song."))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.viewSongs(m.results, "No songs found."))

	return b.String()
}

func (m Model) viewSongs(songs []model.Song, empty string) string {
	if len(songs) == 0 {
		return dimStyle.Render(empty) + "\n"
	}

	start := 0
	if m.cursor >= maxListRows {
		start = m.cursor - maxListRows + 1
	}
	end := min(start+maxListRows, len(songs))

	var b strings.Builder
	for i := start; i < end; i++ {
		song := songs[i]
		prefix := "  "
		if i == m.cursor {
			prefix = "› "
		}
		heart := "♡"
		if song.Favorite {
			heart = "♥"
		}
		line := fmt.Sprintf("%s%s %s - %s", prefix, heart, song.ArtistsString(m.preferRomaji), song.TitleString(m.preferRomaji))
		if i == m.cursor {
			b.WriteString(songStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		if src := song.SourcesString(m.preferRomaji); src != "" {
			b.WriteString(dimStyle.Render(" (" + src + ")"))
		}
		b.WriteString("\n")
	}
	if len(songs) > maxListRows {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(songs))))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewLogin() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Log in to LISTEN.moe"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewMFA() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Two-factor authentication"))
	b.WriteString("\n\n")
	b.WriteString(m.otp.View())
	b.WriteString("\n")

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateLogin:
		return "tab: next field • enter: log in • esc: cancel"
	case StateMFA:
		return "enter: verify • esc: cancel"
	}

	account := "l: log in"
	if m.api.Session().IsAuthenticated() {
		account = "o: log out"
	}
	switch m.tab {
	case TabSearch:
		if m.search.Focused() {
			return "enter: search • esc: done typing"
		}
		return "/: search • ↑/↓: select • f: favorite • r: request • tab: next • " + account + " • q: quit"
	case TabFavorites:
		return "↑/↓: select • f: favorite • r: request • R: reload • tab: next • " + account + " • q: quit"
	}
	return "f: favorite • tab: next • " + account + " • q: quit"
}

func formatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Run starts the TUI application.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
