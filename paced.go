package flow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bradenaw/juniper/container/deque"
	"github.com/bradenaw/juniper/xsync"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Delay returns a Publisher that holds every item of src for d before passing it on.
//
// Items are pulled from src one at a time: the next one is requested only after the previous one
// has been delivered, so src never has more than one item of demand outstanding and order is
// preserved.
func Delay[T any](src Publisher[T], d time.Duration, options ...StageOption) Publisher[T] {
	return &paced[T]{
		src:  src,
		name: "delay",
		wait: func(ctx context.Context) error {
			return sleep(ctx, d)
		},
		options: options,
	}
}

// Throttle is like Delay, but instead of a fixed interval each item waits for a token from l.
// If l can never admit a single token, the stage fails with the limiter's error.
func Throttle[T any](src Publisher[T], l *rate.Limiter, options ...StageOption) Publisher[T] {
	return &paced[T]{
		src:     src,
		name:    "throttle",
		wait:    l.Wait,
		options: options,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type paced[T any] struct {
	src     Publisher[T]
	name    string
	wait    func(ctx context.Context) error
	options []StageOption
}

func (p *paced[T]) Subscribe(ctx context.Context, s Subscriber[T]) {
	ctx, cancel := context.WithCancel(ctx)
	ps := &pacedSubscription[T]{
		opts:       buildStageOptions(p.name, p.options),
		name:       p.name,
		wait:       p.wait,
		down:       s,
		cancel:     cancel,
		bg:         xsync.NewGroup(ctx),
		ready:      make(chan struct{}),
		wakeDemand: make(chan struct{}, 1),
		wakeMail:   make(chan struct{}, 1),
	}
	p.src.Subscribe(ctx, ps)
	s.OnSubscribe(ps)
	ps.bg.Once(ps.run)
}

// event is a signal received from upstream. A terminal event carries the upstream error, or nil
// for completion.
type event[T any] struct {
	item     T
	terminal bool
	err      error
}

// pacedSubscription is both the upstream Subscriber and the downstream Subscription of a paced
// stage. Everything sent downstream is sent from run.
type pacedSubscription[T any] struct {
	opts   stageOptions
	name   string
	wait   func(ctx context.Context) error
	down   Subscriber[T]
	cancel context.CancelFunc
	bg     *xsync.Group

	// Closed once upstream is set.
	ready    chan struct{}
	upstream Subscription

	requested  demand
	wakeDemand chan struct{}

	m        sync.Mutex
	mailbox  deque.Deque[event[T]]
	wakeMail chan struct{}

	cancelled atomic.Bool
}

func (ps *pacedSubscription[T]) run(ctx context.Context) {
	defer ps.cancel()

	select {
	case <-ctx.Done():
		return
	case <-ps.ready:
	}

	for {
		if !ps.awaitDemand(ctx) {
			return
		}
		ps.upstream.Request(1)
		ev, ok := ps.receive(ctx)
		if !ok {
			return
		}
		if ev.terminal {
			ps.finish(ev.err)
			return
		}
		err := ps.wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ps.opts.logger.Debug("pacing failed", zap.Error(err))
			ps.upstream.Cancel()
			ps.finish(fmt.Errorf("%s: %w", ps.name, err))
			return
		}
		if ps.cancelled.Load() {
			return
		}
		ps.requested.take()
		ps.opts.metrics.deliver()
		ps.down.OnNext(ev.item)
	}
}

// awaitDemand blocks until downstream wants an item. It returns false if the stage ended while
// waiting, delivering any terminal event that arrived from upstream in the meantime.
func (ps *pacedSubscription[T]) awaitDemand(ctx context.Context) bool {
	for {
		if ps.cancelled.Load() {
			return false
		}
		if ps.requested.get() > 0 {
			return true
		}
		if ev, ok := ps.popTerminal(); ok {
			ps.finish(ev.err)
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ps.wakeDemand:
		case <-ps.wakeMail:
		}
	}
}

func (ps *pacedSubscription[T]) receive(ctx context.Context) (event[T], bool) {
	for {
		ps.m.Lock()
		if ps.mailbox.Len() > 0 {
			ev := ps.mailbox.PopFront()
			ps.m.Unlock()
			return ev, true
		}
		ps.m.Unlock()
		select {
		case <-ctx.Done():
			return event[T]{}, false
		case <-ps.wakeMail:
		}
	}
}

func (ps *pacedSubscription[T]) popTerminal() (event[T], bool) {
	ps.m.Lock()
	defer ps.m.Unlock()
	if ps.mailbox.Len() == 0 || !ps.mailbox.Item(0).terminal {
		return event[T]{}, false
	}
	return ps.mailbox.PopFront(), true
}

func (ps *pacedSubscription[T]) finish(err error) {
	if ps.cancelled.Load() {
		return
	}
	if err != nil {
		ps.opts.logger.Debug("failed", zap.Error(err))
		ps.down.OnError(err)
		return
	}
	ps.opts.logger.Debug("completed")
	ps.down.OnComplete()
}

func (ps *pacedSubscription[T]) post(ev event[T]) {
	ps.m.Lock()
	ps.mailbox.PushBack(ev)
	ps.m.Unlock()
	notify(ps.wakeMail)
}

func notify(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

func (ps *pacedSubscription[T]) OnSubscribe(s Subscription) {
	ps.upstream = s
	close(ps.ready)
}

func (ps *pacedSubscription[T]) OnNext(item T) {
	ps.post(event[T]{item: item})
}

func (ps *pacedSubscription[T]) OnError(err error) {
	ps.post(event[T]{terminal: true, err: err})
}

func (ps *pacedSubscription[T]) OnComplete() {
	ps.post(event[T]{terminal: true})
}

func (ps *pacedSubscription[T]) Request(n int64) {
	if n == 0 {
		return
	}
	if n < 0 {
		ps.cancelUpstream()
		ps.post(event[T]{terminal: true, err: fmt.Errorf("%w: got %d", ErrInvalidDemand, n)})
		return
	}
	ps.requested.add(n)
	notify(ps.wakeDemand)
}

func (ps *pacedSubscription[T]) Cancel() {
	if !ps.cancelled.CompareAndSwap(false, true) {
		return
	}
	ps.opts.logger.Debug("cancelled")
	ps.cancelUpstream()
	ps.cancel()
}

func (ps *pacedSubscription[T]) cancelUpstream() {
	select {
	case <-ps.ready:
		ps.upstream.Cancel()
	default:
	}
}
