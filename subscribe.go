package flow

import (
	"context"
	"fmt"
	"sync"
)

// Disposable is the handle on a subscription made with Subscribe.
type Disposable struct {
	done chan struct{}

	m          sync.Mutex
	sub        Subscription
	stop       func() bool
	terminated bool
	err        error
}

// Subscribe requests everything pub has and hands each item to onNext, in order. Exactly one of
// onError and onComplete is called when pub terminates, unless the subscription is disposed
// first. Any of the callbacks may be nil.
//
// Cancelling ctx disposes the subscription. Subscribe returns once pub.Subscribe does, so a
// synchronous infinite publisher should be placed behind a stage such as Delay.
func Subscribe[T any](
	ctx context.Context,
	pub Publisher[T],
	onNext func(T),
	onError func(error),
	onComplete func(),
) *Disposable {
	d := &Disposable{done: make(chan struct{})}
	stop := context.AfterFunc(ctx, d.Dispose)
	d.m.Lock()
	if d.terminated {
		stop()
	} else {
		d.stop = stop
	}
	d.m.Unlock()

	if onNext == nil {
		onNext = func(T) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	if onComplete == nil {
		onComplete = func() {}
	}
	pub.Subscribe(ctx, &lambdaSubscriber[T]{
		d:          d,
		onNext:     onNext,
		onError:    onError,
		onComplete: onComplete,
	})
	return d
}

// Dispose cancels the subscription and releases Wait. Nothing is delivered to the callbacks
// after Dispose returns, except an item already being delivered on another goroutine.
func (d *Disposable) Dispose() {
	if !d.terminate(ErrDisposed) {
		return
	}
	d.m.Lock()
	sub := d.sub
	d.m.Unlock()
	if sub != nil {
		sub.Cancel()
	}
	close(d.done)
}

// Done is closed once the subscription has completed, failed or been disposed.
func (d *Disposable) Done() <-chan struct{} {
	return d.done
}

// Err reports how the subscription ended: nil for completion, the publisher's error for failure
// and ErrDisposed after Dispose. It returns nil until Done is closed.
func (d *Disposable) Err() error {
	select {
	case <-d.done:
	default:
		return nil
	}
	d.m.Lock()
	defer d.m.Unlock()
	return d.err
}

// Wait blocks until Done is closed. If ctx ends first it returns an error matching both
// ErrInterrupted and ctx.Err(); the subscription is left running.
func (d *Disposable) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
}

func (d *Disposable) terminate(err error) bool {
	d.m.Lock()
	defer d.m.Unlock()
	if d.terminated {
		return false
	}
	d.terminated = true
	d.err = err
	if d.stop != nil {
		d.stop()
	}
	return true
}

func (d *Disposable) isTerminated() bool {
	d.m.Lock()
	defer d.m.Unlock()
	return d.terminated
}

// setSubscription records s, cancelling it instead if the Disposable was already disposed.
func (d *Disposable) setSubscription(s Subscription) bool {
	d.m.Lock()
	if d.terminated {
		d.m.Unlock()
		s.Cancel()
		return false
	}
	d.sub = s
	d.m.Unlock()
	return true
}

type lambdaSubscriber[T any] struct {
	d          *Disposable
	onNext     func(T)
	onError    func(error)
	onComplete func()
}

func (ls *lambdaSubscriber[T]) OnSubscribe(s Subscription) {
	if ls.d.setSubscription(s) {
		s.Request(Unbounded)
	}
}

func (ls *lambdaSubscriber[T]) OnNext(item T) {
	if ls.d.isTerminated() {
		return
	}
	ls.onNext(item)
}

func (ls *lambdaSubscriber[T]) OnError(err error) {
	if !ls.d.terminate(err) {
		return
	}
	ls.onError(err)
	close(ls.d.done)
}

func (ls *lambdaSubscriber[T]) OnComplete() {
	if !ls.d.terminate(nil) {
		return
	}
	ls.onComplete()
	close(ls.d.done)
}
