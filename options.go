package flow

import (
	"go.uber.org/zap"
)

type SourceOption struct{ f func(*sourceOptions) }

type sourceOptions struct {
	onRequest func(n int64)
	onCancel  func()
	onDispose func()
	logger    *zap.Logger
	metrics   *Metrics
}

// SourceOnRequest sets a hook called with the size of every request, just before the source
// starts fulfilling it.
func SourceOnRequest(f func(n int64)) SourceOption {
	return SourceOption{func(opts *sourceOptions) {
		opts.onRequest = f
	}}
}

// SourceOnCancel sets a hook called once if the subscriber cancels.
func SourceOnCancel(f func()) SourceOption {
	return SourceOption{func(opts *sourceOptions) {
		opts.onCancel = f
	}}
}

// SourceOnDispose sets a hook called exactly once when the subscription ends, whether by
// completion, error or cancellation.
func SourceOnDispose(f func()) SourceOption {
	return SourceOption{func(opts *sourceOptions) {
		opts.onDispose = f
	}}
}

func SourceLogger(l *zap.Logger) SourceOption {
	return SourceOption{func(opts *sourceOptions) {
		opts.logger = l
	}}
}

func SourceMetrics(m *Metrics) SourceOption {
	return SourceOption{func(opts *sourceOptions) {
		opts.metrics = m
	}}
}

func buildSourceOptions(options []SourceOption) sourceOptions {
	opts := sourceOptions{
		onRequest: func(int64) {},
		onCancel:  func() {},
		onDispose: func() {},
		logger:    zap.NewNop(),
	}
	for _, option := range options {
		option.f(&opts)
	}
	opts.logger = opts.logger.With(zap.String("component", "source"))
	return opts
}

type StageOption struct{ f func(*stageOptions) }

type stageOptions struct {
	logger  *zap.Logger
	metrics *Metrics
}

func StageLogger(l *zap.Logger) StageOption {
	return StageOption{func(opts *stageOptions) {
		opts.logger = l
	}}
}

func StageMetrics(m *Metrics) StageOption {
	return StageOption{func(opts *stageOptions) {
		opts.metrics = m
	}}
}

func buildStageOptions(name string, options []StageOption) stageOptions {
	opts := stageOptions{
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option.f(&opts)
	}
	opts.logger = opts.logger.With(zap.String("component", name))
	return opts
}
