package api

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_DeliversSuccessAndFailure(t *testing.T) {
	d := NewDispatcher(2)
	ctx := context.Background()

	var got int
	var gotErr error
	var mu sync.Mutex

	Enqueue(d, ctx, func(context.Context) (int, error) { return 42, nil }, Callback[int]{
		OnSuccess: func(v int) { mu.Lock(); got = v; mu.Unlock() },
		OnFailure: func(err error) { t.Errorf("unexpected failure: %v", err) },
	})
	Enqueue(d, ctx, func(context.Context) (int, error) { return 0, errors.New("boom") }, Callback[int]{
		OnSuccess: func(int) { t.Error("unexpected success") },
		OnFailure: func(err error) { mu.Lock(); gotErr = err; mu.Unlock() },
	})
	d.Wait()

	assert.Equal(t, 42, got)
	assert.EqualError(t, gotErr, "boom")
}

func TestDispatcher_RespectsLimit(t *testing.T) {
	d := NewDispatcher(2)

	var running, peak atomic.Int32
	for i := 0; i < 10; i++ {
		d.Go(func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			running.Add(-1)
		})
	}
	d.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEnqueueErr_NilHandlers(t *testing.T) {
	d := NewDispatcher(0)
	EnqueueErr(d, context.Background(), func(context.Context) error { return errors.New("ignored") }, Callback[struct{}]{})
	d.Wait()
}

func TestClient_AuthenticateAsync(t *testing.T) {
	env := newTestEnv(t)
	env.server.AddMFAUser("yuki", "pw", "654321")
	d := NewDispatcher(DefaultConcurrency)
	ctx := context.Background()

	var mfaToken string
	env.client.AuthenticateAsync(d, ctx, "yuki", "pw", LoginCallback{
		OnSuccess:     func(string) { t.Error("login must ask for MFA") },
		OnMFARequired: func(token string) { mfaToken = token },
		OnFailure:     func(err error) { t.Errorf("unexpected failure: %v", err) },
	})
	d.Wait()
	require.NotEmpty(t, mfaToken)

	var token string
	env.client.AuthenticateMFAAsync(d, ctx, "654321", LoginCallback{
		OnSuccess: func(tok string) { token = tok },
		OnFailure: func(err error) { t.Errorf("unexpected failure: %v", err) },
	})
	d.Wait()
	assert.NotEmpty(t, token)
	assert.True(t, env.session.IsAuthenticated())

	var failure error
	env.client.AuthenticateAsync(d, ctx, "yuki", "wrong", LoginCallback{
		OnFailure: func(err error) { failure = err },
	})
	d.Wait()
	assert.Equal(t, "Wrong password.", UserMessage(failure))
}
