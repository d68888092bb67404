package flow

import (
	"context"
)

type counter struct {
	options []SourceOption
}

// Counter returns an infinite source of 1, 2, 3, ... Each subscription counts on its own.
func Counter(options ...SourceOption) Publisher[int64] {
	return counter{options: options}
}

func (c counter) Subscribe(ctx context.Context, s Subscriber[int64]) {
	// Only touched from inside onRequest, which the source never runs concurrently.
	var last int64
	Create(func(n int64, sink Sink[int64]) {
		for i := int64(0); i < n; i++ {
			last++
			if !sink.Next(last) {
				return
			}
		}
	}, c.options...).Subscribe(ctx, s)
}
