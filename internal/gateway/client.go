package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/listenmoe-client/internal/model"
)

// Gateway opcodes.
const (
	OpWelcome      = 0
	OpPlayback     = 1
	OpHeartbeat    = 9
	OpHeartbeatAck = 10
)

// Playback update types carried in the "t" field of op 1 frames.
const (
	TrackUpdate        = "TRACK_UPDATE"
	TrackUpdateRequest = "TRACK_UPDATE_REQUEST"
	QueueUpdate        = "QUEUE_UPDATE"
	Notification       = "NOTIFICATION"
)

const (
	// DefaultHeartbeat is used when the welcome frame announces no interval.
	DefaultHeartbeat = 35 * time.Second

	defaultMinBackoff = time.Second
	defaultMaxBackoff = 2 * time.Minute
	backoffExponent   = 2.0

	writeTimeout = 10 * time.Second
)

// Update is a message delivered on the Updates channel. Either Err is set
// (the connection failed and a reconnect is scheduled) or Type and Info
// describe a playback update.
type Update struct {
	Type string
	Info model.PlaybackInfo
	Err  error
}

// IsTrackChange reports whether the update announces a new song.
func (u Update) IsTrackChange() bool {
	return u.Err == nil && (u.Type == TrackUpdate || u.Type == TrackUpdateRequest)
}

// Frame is one gateway message.
type Frame struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

type welcome struct {
	Message   string `json:"message"`
	Heartbeat int64  `json:"heartbeat"`
}

type authFrame struct {
	Op int `json:"op"`
	D  struct {
		Auth string `json:"auth"`
	} `json:"d"`
}

// Client keeps a connection to the radio gateway open and turns its frames
// into Updates.
//
// The connection is re-established with an exponential cooldown after every
// failure until the Run context ends.
//
// Example:
//
//	gw := gateway.New(model.Jpop.GatewayURL, gateway.WithAuth(session.AuthTokenWithPrefix))
//	go gw.Run(ctx)
//	for u := range gw.Updates() {
//	    if u.IsTrackChange() {
//	        fmt.Println(u.Info.Song.TitleString(false))
//	    }
//	}
type Client struct {
	url        string
	auth       func() string
	dialer     *websocket.Dialer
	clock      clockwork.Clock
	logger     *slog.Logger
	heartbeat  time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration

	updates chan Update

	mu   sync.Mutex
	conn *websocket.Conn
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sets the source of the "Bearer <token>" value sent after
// connecting. An empty value skips the auth frame.
func WithAuth(fn func() string) Option {
	return func(c *Client) { c.auth = fn }
}

// WithClock replaces the clock driving heartbeats and reconnect cooldowns.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHeartbeatFallback sets the heartbeat interval used when the server
// does not announce one.
func WithHeartbeatFallback(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.heartbeat = d
		}
	}
}

// WithBackoff sets the first and the largest reconnect cooldown.
func WithBackoff(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		if minWait > 0 {
			c.minBackoff = minWait
		}
		if maxWait >= c.minBackoff {
			c.maxBackoff = maxWait
		}
	}
}

// New creates a Client for the gateway at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		dialer:     websocket.DefaultDialer,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		heartbeat:  DefaultHeartbeat,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		updates:    make(chan Update, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates returns the channel updates are delivered on. It is closed when
// Run returns.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// Run connects and reconnects until ctx is done. It returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	defer close(c.updates)

	tries := 0
	for {
		welcomed, err := c.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if welcomed {
			tries = 0
		}

		c.logger.Warn("gateway connection lost", "url", c.url, "error", err, "retry", tries+1)
		c.emit(ctx, Update{Err: err})

		if !c.waitForRetry(ctx, tries) {
			return ctx.Err()
		}
		tries++
	}
}

// Authenticate sends the auth frame on the open connection, for example
// right after a login. It is a no-op while disconnected.
func (c *Client) Authenticate() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return c.sendAuth(conn)
}

// connect runs one connection until it fails. welcomed reports whether the
// server got as far as the welcome frame.
func (c *Client) connect(ctx context.Context) (welcomed bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("gateway: dial: %w", err)
	}
	c.logger.Debug("gateway connected", "url", c.url)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { conn.Close() })
	defer stop()

	intervals := make(chan time.Duration, 1)
	var once sync.Once

	g.Go(func() error {
		return c.readLoop(gctx, conn, func(interval time.Duration) {
			once.Do(func() {
				welcomed = true
				intervals <- interval
			})
		})
	})
	g.Go(func() error {
		return c.heartbeatLoop(gctx, conn, intervals)
	})

	err = g.Wait()
	return welcomed, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, onWelcome func(time.Duration)) error {
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gateway: read: %w", err)
		}

		switch f.Op {
		case OpWelcome:
			var w welcome
			if len(f.D) > 0 {
				if err := json.Unmarshal(f.D, &w); err != nil {
					return fmt.Errorf("gateway: decode welcome: %w", err)
				}
			}
			interval := time.Duration(w.Heartbeat) * time.Millisecond
			if interval <= 0 {
				interval = c.heartbeat
			}
			c.logger.Debug("gateway welcome", "heartbeat", interval)

			if err := c.sendAuth(conn); err != nil {
				return err
			}
			onWelcome(interval)

		case OpPlayback:
			u, err := decodePlayback(f)
			if err != nil {
				c.logger.Warn("gateway: bad playback frame", "type", f.T, "error", err)
				continue
			}
			c.emit(ctx, u)

		case OpHeartbeatAck:
			c.logger.Debug("gateway heartbeat ack")

		default:
			c.logger.Debug("gateway: unknown op", "op", f.Op)
		}
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn, intervals <-chan time.Duration) error {
	var interval time.Duration
	select {
	case <-ctx.Done():
		return nil
	case interval = <-intervals:
	}

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := c.write(conn, Frame{Op: OpHeartbeat}); err != nil {
				return fmt.Errorf("gateway: heartbeat: %w", err)
			}
		}
	}
}

func (c *Client) sendAuth(conn *websocket.Conn) error {
	if c.auth == nil {
		return nil
	}
	token := c.auth()
	if token == "" {
		return nil
	}

	var f authFrame
	f.Op = OpWelcome
	f.D.Auth = token
	if err := c.write(conn, f); err != nil {
		return fmt.Errorf("gateway: auth: %w", err)
	}
	return nil
}

// write serializes frames; gorilla connections allow one concurrent writer.
func (c *Client) write(conn *websocket.Conn, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (c *Client) emit(ctx context.Context, u Update) {
	select {
	case c.updates <- u:
	case <-ctx.Done():
	}
}

// waitForRetry sleeps minBackoff * 2^tries, capped at maxBackoff. It returns
// false when ctx ended first.
func (c *Client) waitForRetry(ctx context.Context, tries int) bool {
	cooldown := float64(c.minBackoff) * math.Pow(backoffExponent, float64(tries))
	wait := time.Duration(math.Min(cooldown, float64(c.maxBackoff)))

	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(wait):
		return true
	}
}

func decodePlayback(f Frame) (Update, error) {
	u := Update{Type: f.T}
	if len(f.D) == 0 {
		return u, nil
	}
	if err := json.Unmarshal(f.D, &u.Info); err != nil {
		return Update{}, err
	}
	return u, nil
}
