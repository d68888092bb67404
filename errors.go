package flow

import (
	"errors"
)

var (
	// ErrInterrupted is returned by Disposable.Wait when its context ends before the pipeline
	// reaches a terminal signal.
	ErrInterrupted = errors.New("interrupted while waiting for termination")

	// ErrInvalidDemand is signalled downstream when a subscriber requests a negative number of
	// items.
	ErrInvalidDemand = errors.New("request must be non-negative")

	// ErrOverflow is signalled downstream when a producer emits an item nobody asked for.
	ErrOverflow = errors.New("emitted more items than requested")

	// ErrDisposed is reported by Disposable.Err after the subscription was disposed.
	ErrDisposed = errors.New("disposed")
)
