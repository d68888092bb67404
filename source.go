package flow

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

type source[T any] struct {
	onRequest func(n int64, sink Sink[T])
	options   []SourceOption
}

// Create returns a Publisher that produces items only when asked to. For every request of n > 0
// items, onRequest is called with n and a Sink through which it should emit at most n items.
//
// Calls to onRequest are serialized: a request made while onRequest is running, including one
// made from the subscriber's OnNext, is handed to the next call once the current one returns.
func Create[T any](onRequest func(n int64, sink Sink[T]), options ...SourceOption) Publisher[T] {
	return &source[T]{
		onRequest: onRequest,
		options:   options,
	}
}

func (src *source[T]) Subscribe(ctx context.Context, s Subscriber[T]) {
	sub := &sourceSubscription[T]{
		opts:      buildSourceOptions(src.options),
		onRequest: src.onRequest,
		s:         s,
	}
	stop := context.AfterFunc(ctx, sub.Cancel)
	sub.stop.Store(&stop)
	sub.opts.logger.Debug("subscribed")
	s.OnSubscribe(sub)
}

type sourceSubscription[T any] struct {
	opts      sourceOptions
	onRequest func(n int64, sink Sink[T])
	s         Subscriber[T]
	// Unregisters the context watcher. Nil until Subscribe stores it, which is fine: if the
	// watcher already fired there is nothing to unregister.
	stop atomic.Pointer[func() bool]

	// Outstanding demand, spent one unit per emitted item.
	requested demand
	// Demand not yet handed to onRequest.
	pending demand
	wip     atomic.Int32
	done    atomic.Bool
}

func (sub *sourceSubscription[T]) Request(n int64) {
	if n == 0 || sub.done.Load() {
		return
	}
	if n < 0 {
		sub.Error(fmt.Errorf("%w: got %d", ErrInvalidDemand, n))
		return
	}
	sub.opts.metrics.request(n)
	sub.requested.add(n)
	sub.pending.add(n)
	sub.drain()
}

// drain runs onRequest for accumulated demand until no more arrives. Only one goroutine is ever
// inside the loop.
func (sub *sourceSubscription[T]) drain() {
	if sub.wip.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		if n := sub.pending.swap(); n > 0 && !sub.done.Load() {
			sub.opts.onRequest(n)
			sub.onRequest(n, sub)
		}
		missed = sub.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (sub *sourceSubscription[T]) Cancel() {
	if !sub.done.CompareAndSwap(false, true) {
		return
	}
	sub.opts.logger.Debug("cancelled")
	sub.opts.metrics.cancel()
	sub.opts.onCancel()
	sub.dispose()
}

func (sub *sourceSubscription[T]) Next(item T) bool {
	if sub.done.Load() {
		return false
	}
	if !sub.requested.take() {
		sub.Error(ErrOverflow)
		return false
	}
	sub.opts.metrics.emit()
	sub.s.OnNext(item)
	return !sub.done.Load()
}

func (sub *sourceSubscription[T]) Complete() {
	if !sub.done.CompareAndSwap(false, true) {
		return
	}
	sub.opts.logger.Debug("completed")
	sub.s.OnComplete()
	sub.dispose()
}

func (sub *sourceSubscription[T]) Error(err error) {
	if !sub.done.CompareAndSwap(false, true) {
		return
	}
	sub.opts.logger.Debug("failed", zap.Error(err))
	sub.s.OnError(err)
	sub.dispose()
}

// dispose runs once, from whichever of Cancel, Complete and Error won the race to done.
func (sub *sourceSubscription[T]) dispose() {
	if stop := sub.stop.Load(); stop != nil {
		(*stop)()
	}
	sub.opts.metrics.dispose()
	sub.opts.onDispose()
}
