package apitest

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/handiism/listenmoe-client/internal/model"
)

type frame struct {
	Op int    `json:"op"`
	T  string `json:"t,omitempty"`
	D  any    `json:"d,omitempty"`
}

type clientFrame struct {
	Op int `json:"op"`
	D  struct {
		Auth string `json:"auth"`
	} `json:"d"`
}

type gwConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *gwConn) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

type gateway struct {
	mu          sync.Mutex
	conns       map[*gwConn]struct{}
	current     *model.PlaybackInfo
	heartbeat   time.Duration
	connections int
	heartbeats  int
	auths       int
}

func newGateway() *gateway {
	return &gateway{
		conns:     map[*gwConn]struct{}{},
		heartbeat: 45 * time.Second,
	}
}

func (g *gateway) setHeartbeat(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.heartbeat = d
}

func (g *gateway) stats() (connections, heartbeats, auths int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connections, g.heartbeats, g.auths
}

func (g *gateway) handle(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	conn := &gwConn{conn: ws}

	g.mu.Lock()
	g.conns[conn] = struct{}{}
	g.connections++
	heartbeat := g.heartbeat
	current := g.current
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.conns, conn)
		g.mu.Unlock()
		ws.Close()
	}()

	welcome := map[string]any{"message": "Welcome to the radio gateway", "heartbeat": heartbeat.Milliseconds()}
	if err := conn.send(frame{Op: 0, D: welcome}); err != nil {
		return nil
	}
	if current != nil {
		if err := conn.send(frame{Op: 1, T: "TRACK_UPDATE", D: current}); err != nil {
			return nil
		}
	}

	for {
		var in clientFrame
		if err := ws.ReadJSON(&in); err != nil {
			return nil
		}

		switch in.Op {
		case 9:
			g.mu.Lock()
			g.heartbeats++
			g.mu.Unlock()
			if err := conn.send(frame{Op: 10}); err != nil {
				return nil
			}
		case 0:
			if in.D.Auth != "" {
				g.mu.Lock()
				g.auths++
				g.mu.Unlock()
			}
		}
	}
}

func (g *gateway) broadcast(info model.PlaybackInfo) {
	g.mu.Lock()
	g.current = &info
	conns := make([]*gwConn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		_ = c.send(frame{Op: 1, T: "TRACK_UPDATE", D: info})
	}
}

func (g *gateway) closeAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.conns {
		c.conn.Close()
	}
}
