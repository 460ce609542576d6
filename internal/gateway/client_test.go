package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/listenmoe-client/internal/apitest"
	"github.com/handiism/listenmoe-client/internal/model"
)

func playing(id int, title string) model.PlaybackInfo {
	return model.PlaybackInfo{
		Song:      &model.Song{ID: id, Title: title, Duration: 200},
		StartTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Listeners: 120,
	}
}

func next(t *testing.T, gw *Client) Update {
	t.Helper()
	select {
	case u, ok := <-gw.Updates():
		require.True(t, ok, "updates channel closed")
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for gateway update")
		return Update{}
	}
}

func startClient(t *testing.T, gw *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestClient_DeliversTrackUpdates(t *testing.T) {
	srv := apitest.New(t)
	srv.Broadcast(playing(1, "Snow halation"))

	gw := New(srv.GatewayURL(), WithAuth(func() string { return "Bearer token" }))
	startClient(t, gw)

	u := next(t, gw)
	require.NoError(t, u.Err)
	assert.Equal(t, TrackUpdate, u.Type)
	assert.True(t, u.IsTrackChange())
	require.NotNil(t, u.Info.Song)
	assert.Equal(t, "Snow halation", u.Info.Song.Title)
	assert.Equal(t, 120, u.Info.Listeners)
	assert.True(t, u.Info.StartTime.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	srv.Broadcast(playing(2, "only my railgun"))
	u = next(t, gw)
	assert.Equal(t, 2, u.Info.Song.ID)

	assert.Eventually(t, func() bool {
		_, _, auths := srv.GatewayStats()
		return auths == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClient_NoAuthFrameWithoutToken(t *testing.T) {
	srv := apitest.New(t)
	srv.Broadcast(playing(1, "a"))

	gw := New(srv.GatewayURL(), WithAuth(func() string { return "" }))
	startClient(t, gw)
	next(t, gw)

	_, _, auths := srv.GatewayStats()
	assert.Zero(t, auths)
}

func TestClient_SendsHeartbeats(t *testing.T) {
	srv := apitest.New(t)
	srv.SetHeartbeat(5 * time.Second)
	srv.Broadcast(playing(1, "a"))

	clock := clockwork.NewFakeClock()
	gw := New(srv.GatewayURL(), WithClock(clock))
	startClient(t, gw)
	next(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		_, heartbeats, _ := srv.GatewayStats()
		return heartbeats == 1
	}, 5*time.Second, 10*time.Millisecond)

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		_, heartbeats, _ := srv.GatewayStats()
		return heartbeats == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClient_Reconnects(t *testing.T) {
	srv := apitest.New(t)
	srv.Broadcast(playing(1, "a"))

	gw := New(srv.GatewayURL(), WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	startClient(t, gw)
	next(t, gw)

	srv.DropGateway()

	u := next(t, gw)
	assert.Error(t, u.Err)
	assert.False(t, u.IsTrackChange())

	u = next(t, gw)
	require.NoError(t, u.Err)
	assert.Equal(t, 1, u.Info.Song.ID)

	connections, _, _ := srv.GatewayStats()
	assert.Equal(t, 2, connections)
}

func TestClient_RunStopsOnCancel(t *testing.T) {
	srv := apitest.New(t)
	gw := New(srv.GatewayURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	require.Eventually(t, func() bool {
		connections, _, _ := srv.GatewayStats()
		return connections == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	_, ok := <-gw.Updates()
	assert.False(t, ok)
}

func TestClient_DialFailureIsReported(t *testing.T) {
	gw := New("ws://127.0.0.1:1/gateway_v2", WithBackoff(time.Hour, time.Hour))
	startClient(t, gw)

	u := next(t, gw)
	assert.ErrorContains(t, u.Err, "gateway: dial")
}

func TestDecodePlayback(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
		wantID  int
	}{
		{"track", `{"op":1,"t":"TRACK_UPDATE","d":{"song":{"id":7,"title":"x"},"listeners":3}}`, false, 7},
		{"queue", `{"op":1,"t":"QUEUE_UPDATE","d":{"amount":4}}`, false, 0},
		{"empty", `{"op":1,"t":"NOTIFICATION"}`, false, 0},
		{"bad", `{"op":1,"t":"TRACK_UPDATE","d":{"song":"nope"}}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Frame
			require.NoError(t, json.Unmarshal([]byte(tt.frame), &f))

			u, err := decodePlayback(f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.T, u.Type)
			if tt.wantID != 0 {
				require.NotNil(t, u.Info.Song)
				assert.Equal(t, tt.wantID, u.Info.Song.ID)
			}
		})
	}
}

func TestUpdate_IsTrackChange(t *testing.T) {
	assert.True(t, Update{Type: TrackUpdate}.IsTrackChange())
	assert.True(t, Update{Type: TrackUpdateRequest}.IsTrackChange())
	assert.False(t, Update{Type: QueueUpdate}.IsTrackChange())
	assert.False(t, Update{Type: Notification}.IsTrackChange())
	assert.False(t, Update{Type: TrackUpdate, Err: assert.AnError}.IsTrackChange())
}
