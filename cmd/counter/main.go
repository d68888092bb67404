// Command counter prints an endless count, one number per second, pulling each number from its
// source only after the previous one has been printed. Interrupt it to stop.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bradenaw/flow"
)

type config struct {
	delay    time.Duration
	logLevel zapcore.Level
}

func defaultConfig() config {
	return config{
		delay:    time.Second,
		logLevel: zapcore.InfoLevel,
	}
}

func main() {
	cfg := defaultConfig()
	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &printer{w: os.Stdout}
	if err := run(ctx, p, newPipeline(p, cfg, logger), logger); err != nil {
		logger.Fatal("wait for termination failed", zap.Error(err))
	}
}

// run subscribes to pipeline and blocks until it terminates or ctx ends. Either way the
// subscription is disposed before run returns.
func run(ctx context.Context, p *printer, pipeline flow.Publisher[int64], logger *zap.Logger) error {
	d := flow.Subscribe(
		context.Background(),
		pipeline,
		func(n int64) {
			p.printf("Next valeur = %d", n)
		},
		func(err error) {
			logger.Error("stream failed", zap.Error(err))
		},
		func() {
			p.printf("Complete")
		},
	)
	defer d.Dispose()

	return d.Wait(ctx)
}

func newPipeline(p *printer, cfg config, logger *zap.Logger) flow.Publisher[int64] {
	src := flow.Counter(
		flow.SourceOnRequest(func(n int64) {
			p.printf("Request %d", n)
		}),
		flow.SourceOnCancel(func() {
			p.printf("Cancel")
		}),
		flow.SourceOnDispose(func() {
			p.printf("Terminate")
		}),
		flow.SourceLogger(logger),
	)
	return flow.Delay(src, cfg.delay, flow.StageLogger(logger))
}

func newLogger(cfg config) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(cfg.logLevel),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// printer writes whole lines. Hooks fire on both the pipeline's goroutine and the one disposing
// it.
type printer struct {
	m sync.Mutex
	w io.Writer
}

func (p *printer) printf(format string, args ...any) {
	p.m.Lock()
	defer p.m.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}
