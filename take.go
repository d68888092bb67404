package flow

import (
	"context"
	"sync/atomic"
)

type take[T any] struct {
	src   Publisher[T]
	limit int64
}

// Take returns a Publisher that passes on the first n items of src and then completes. On the
// n-th item it cancels src before forwarding the item, so src never produces an n+1-th.
func Take[T any](src Publisher[T], n int64) Publisher[T] {
	return &take[T]{src: src, limit: n}
}

func (t *take[T]) Subscribe(ctx context.Context, s Subscriber[T]) {
	t.src.Subscribe(ctx, &takeSubscriber[T]{down: s, limit: t.limit})
}

type takeSubscriber[T any] struct {
	down     Subscriber[T]
	limit    int64
	upstream Subscription

	// Only touched from OnNext.
	seen int64
	// Total demand passed upstream, never more than limit.
	granted atomic.Int64
	done    atomic.Bool
}

func (ts *takeSubscriber[T]) OnSubscribe(s Subscription) {
	ts.upstream = s
	if ts.limit <= 0 {
		ts.done.Store(true)
		s.Cancel()
		ts.down.OnSubscribe(ts)
		ts.down.OnComplete()
		return
	}
	ts.down.OnSubscribe(ts)
}

func (ts *takeSubscriber[T]) OnNext(item T) {
	if ts.done.Load() {
		return
	}
	ts.seen++
	if ts.seen < ts.limit {
		ts.down.OnNext(item)
		return
	}
	ts.done.Store(true)
	ts.upstream.Cancel()
	ts.down.OnNext(item)
	ts.down.OnComplete()
}

func (ts *takeSubscriber[T]) OnError(err error) {
	if ts.done.CompareAndSwap(false, true) {
		ts.down.OnError(err)
	}
}

func (ts *takeSubscriber[T]) OnComplete() {
	if ts.done.CompareAndSwap(false, true) {
		ts.down.OnComplete()
	}
}

func (ts *takeSubscriber[T]) Request(n int64) {
	if n < 0 {
		ts.upstream.Request(n)
		return
	}
	for {
		old := ts.granted.Load()
		if old >= ts.limit || n == 0 {
			return
		}
		grant := min(n, ts.limit-old)
		if ts.granted.CompareAndSwap(old, old+grant) {
			ts.upstream.Request(grant)
			return
		}
	}
}

func (ts *takeSubscriber[T]) Cancel() {
	if ts.done.CompareAndSwap(false, true) {
		ts.upstream.Cancel()
	}
}
