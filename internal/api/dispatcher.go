package api

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many calls a Dispatcher runs at once.
const DefaultConcurrency = 4

// Callback receives the outcome of a call run by a Dispatcher. Exactly one
// of OnSuccess and OnFailure is invoked; nil handlers are skipped.
type Callback[T any] struct {
	OnSuccess func(T)
	OnFailure func(error)
}

func (cb Callback[T]) deliver(v T, err error) {
	if err != nil {
		if cb.OnFailure != nil {
			cb.OnFailure(err)
		}
		return
	}
	if cb.OnSuccess != nil {
		cb.OnSuccess(v)
	}
}

// LoginCallback receives the outcome of an asynchronous login.
type LoginCallback struct {
	// OnSuccess gets the auth token.
	OnSuccess func(token string)

	// OnMFARequired gets the intermediate token; AuthenticateMFA must follow.
	OnMFARequired func(token string)

	OnFailure func(error)
}

// Dispatcher runs API calls in the background on a bounded pool and hands
// the results to callbacks. Callbacks run on the pool goroutine.
//
// Example:
//
//	d := api.NewDispatcher(api.DefaultConcurrency)
//	api.Enqueue(d, ctx, client.UserFavorites, api.Callback[[]model.Song]{
//	    OnSuccess: func(songs []model.Song) { show(songs) },
//	    OnFailure: func(err error) { toast(api.UserMessage(err)) },
//	})
//	d.Wait()
type Dispatcher struct {
	group errgroup.Group
}

// NewDispatcher creates a Dispatcher running at most limit calls at once.
// A limit below 1 uses DefaultConcurrency.
func NewDispatcher(limit int) *Dispatcher {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	d := &Dispatcher{}
	d.group.SetLimit(limit)
	return d
}

// Go runs fn on the pool. It blocks while the pool is full.
func (d *Dispatcher) Go(fn func()) {
	d.group.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every queued call and its callback finished.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

// Enqueue runs call on d and delivers its result to cb.
func Enqueue[T any](d *Dispatcher, ctx context.Context, call func(context.Context) (T, error), cb Callback[T]) {
	d.Go(func() {
		v, err := call(ctx)
		cb.deliver(v, err)
	})
}

// EnqueueErr runs a call without a result value, such as FavoriteSong.
func EnqueueErr(d *Dispatcher, ctx context.Context, call func(context.Context) error, cb Callback[struct{}]) {
	d.Go(func() {
		cb.deliver(struct{}{}, call(ctx))
	})
}

// AuthenticateAsync runs Authenticate on d.
func (c *Client) AuthenticateAsync(d *Dispatcher, ctx context.Context, username, password string, cb LoginCallback) {
	d.Go(func() {
		res, err := c.Authenticate(ctx, username, password)
		switch {
		case err != nil:
			if cb.OnFailure != nil {
				cb.OnFailure(err)
			}
		case res.MFARequired:
			if cb.OnMFARequired != nil {
				cb.OnMFARequired(res.Token)
			}
		default:
			if cb.OnSuccess != nil {
				cb.OnSuccess(res.Token)
			}
		}
	})
}

// AuthenticateMFAAsync runs AuthenticateMFA on d.
func (c *Client) AuthenticateMFAAsync(d *Dispatcher, ctx context.Context, otp string, cb LoginCallback) {
	Enqueue(d, ctx, func(ctx context.Context) (string, error) {
		return c.AuthenticateMFA(ctx, otp)
	}, Callback[string]{OnSuccess: cb.OnSuccess, OnFailure: cb.OnFailure})
}
