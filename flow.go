package flow

import (
	"context"
	"math"
	"sync/atomic"
)

// Unbounded is the demand a subscriber requests when it is willing to accept everything.
const Unbounded = math.MaxInt64

// Publisher produces a possibly infinite sequence of items, emitting them only as fast as its
// subscribers request them.
type Publisher[T any] interface {
	// Subscribe attaches s. The publisher calls s.OnSubscribe before any other method of s.
	Subscribe(ctx context.Context, s Subscriber[T])
}

// Subscriber receives the items of a Publisher.
//
// OnNext is called at most as many times as the subscriber has requested through its
// Subscription, and never concurrently. At most one of OnError and OnComplete is called, after
// which nothing else is.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(item T)
	OnError(err error)
	OnComplete()
}

// Subscription is the link between a publisher and one of its subscribers.
type Subscription interface {
	// Request adds n to the number of items the subscriber is willing to receive.
	Request(n int64)
	// Cancel asks the publisher to stop sending items. It is safe to call more than once.
	Cancel()
}

// Sink is the producer-facing side of a source created with Create. Its methods must not be
// called concurrently with each other.
type Sink[T any] interface {
	// Next emits an item. It returns false if the subscription has ended, in which case the
	// producer should stop.
	Next(item T) bool
	Complete()
	Error(err error)
}

// demand is an outstanding request count. Additions saturate at Unbounded, and once Unbounded it
// never goes down again.
type demand struct {
	n atomic.Int64
}

func (d *demand) add(n int64) int64 {
	for {
		old := d.n.Load()
		if old == Unbounded {
			return Unbounded
		}
		next := old + n
		if next < 0 {
			next = Unbounded
		}
		if d.n.CompareAndSwap(old, next) {
			return next
		}
	}
}

// take consumes one unit of demand. It returns false if there was none.
func (d *demand) take() bool {
	for {
		old := d.n.Load()
		if old == Unbounded {
			return true
		}
		if old <= 0 {
			return false
		}
		if d.n.CompareAndSwap(old, old-1) {
			return true
		}
	}
}

func (d *demand) get() int64 {
	return d.n.Load()
}

// swap resets the demand to zero and returns what it was.
func (d *demand) swap() int64 {
	return d.n.Swap(0)
}
