package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type calls struct {
	m         sync.Mutex
	items     []int64
	errs      []error
	completes int
}

func (c *calls) onNext(n int64) {
	c.m.Lock()
	defer c.m.Unlock()
	c.items = append(c.items, n)
}

func (c *calls) onError(err error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.errs = append(c.errs, err)
}

func (c *calls) onComplete() {
	c.m.Lock()
	defer c.m.Unlock()
	c.completes++
}

func (c *calls) Items() []int64 {
	c.m.Lock()
	defer c.m.Unlock()
	return append([]int64(nil), c.items...)
}

func TestSubscribeComplete(t *testing.T) {
	var c calls
	d := Subscribe(context.Background(), Take(Delay(Counter(), 0), 3), c.onNext, c.onError, c.onComplete)

	require.NoError(t, d.Wait(context.Background()))
	require.NoError(t, d.Err())
	require.Equal(t, sequence(3), c.Items())
	require.Equal(t, 1, c.completes)
	require.Empty(t, c.errs)

	d.Dispose()
	require.NoError(t, d.Err())
}

func TestSubscribeError(t *testing.T) {
	errBoom := errors.New("boom")
	src := Create(func(n int64, sink Sink[int64]) {
		sink.Next(1)
		sink.Error(errBoom)
	})

	var c calls
	d := Subscribe(context.Background(), src, c.onNext, c.onError, c.onComplete)

	require.NoError(t, d.Wait(context.Background()))
	require.ErrorIs(t, d.Err(), errBoom)
	require.Equal(t, []int64{1}, c.Items())
	require.Equal(t, []error{errBoom}, c.errs)
	require.Zero(t, c.completes)
}

func TestSubscribeDispose(t *testing.T) {
	var h hooks
	var c calls
	d := Subscribe(context.Background(), Delay(Counter(h.options()...), time.Hour), c.onNext, c.onError, c.onComplete)

	select {
	case <-d.Done():
		t.Fatal("done before dispose")
	default:
	}
	require.NoError(t, d.Err())

	d.Dispose()
	d.Dispose()

	<-d.Done()
	require.ErrorIs(t, d.Err(), ErrDisposed)
	require.Equal(t, 1, h.Cancels())
	require.Equal(t, 1, h.Disposes())
	require.Empty(t, c.Items())
	require.Empty(t, c.errs)
	require.Zero(t, c.completes)
}

func TestSubscribeDisposeFromOnNext(t *testing.T) {
	var h hooks
	var items []int64
	var d *Disposable
	ready := make(chan struct{})
	d = Subscribe(context.Background(), Delay(Counter(h.options()...), 0), func(n int64) {
		<-ready
		items = append(items, n)
		if n == 2 {
			d.Dispose()
		}
	}, nil, nil)
	close(ready)

	require.NoError(t, d.Wait(context.Background()))
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, []int64{1, 2}, items)
	require.Equal(t, []int64{1, 1}, h.Requests())
	require.Equal(t, 1, h.Cancels())
	require.Equal(t, 1, h.Disposes())
}

func TestSubscribeWaitInterrupted(t *testing.T) {
	d := Subscribe[int64](context.Background(), Delay(Counter(), time.Hour), nil, nil, nil)
	defer d.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := d.Wait(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, d.Err())
}

func TestSubscribeContextCancel(t *testing.T) {
	var h hooks
	ctx, cancel := context.WithCancel(context.Background())
	d := Subscribe[int64](ctx, Delay(Counter(h.options()...), time.Hour), nil, nil, nil)

	cancel()

	require.NoError(t, d.Wait(context.Background()))
	require.ErrorIs(t, d.Err(), ErrDisposed)
	require.Eventually(t, func() bool { return h.Disposes() == 1 }, 5*time.Second, time.Millisecond)
	require.Equal(t, 1, h.Cancels())
}
