package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "LearnCast/pkg/http"
	pkgkafka "LearnCast/pkg/kafka"
	applogger "LearnCast/pkg/logger"
)

// App runs the HTTP server and the optional activity consumer until a
// shutdown signal. Infrastructure clients are released by the caller.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	shutdownTimeout time.Duration
	signals         []os.Signal
}

type Option func(*App)

// WithConsumer runs c with the given handlers; a nil consumer is ignored.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = append(a.handlers, handlers...)
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

// New creates an App around an HTTP server.
func New(l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	a := &App{
		log:             l,
		httpServer:      httpServer,
		shutdownTimeout: 10 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts every component and blocks until ctx is done, a signal arrives
// or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			if h != nil {
				a.consumer.RegisterHandler(h)
			}
		}
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.log.Error("http server failed", applogger.Error(runErr))
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops the listener first so no new predictions start, then drains
// the consumer and flushes collected logs.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}
	if a.consumer != nil && len(a.handlers) > 0 {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.log.Info("shutdown complete")
	a.log.RemoveCollector()
	return firstErr
}
