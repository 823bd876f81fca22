package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"FXBias/internal/usecase"
	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
	applogger "FXBias/pkg/logger"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	session    *usecase.Session
	httpServer *xhttp.Server
	closers    []namedCloser
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, session *usecase.Session, httpServer *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        l,
		session:    session,
		httpServer: httpServer,
	}
}

// AddCloser registers a resource released on shutdown, in registration order.
func (a *App) AddCloser(name string, c io.Closer) {
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run restores the session, serves HTTP and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	if err := a.session.Restore(ctx); err != nil {
		// a broken persisted state must not keep the service down
		a.log.Warn("session restore failed, starting empty", applogger.Error(err))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("fxbias started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("currencies", a.cfg.CurrencyCodes()),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	var firstErr error
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn(nc.name+" close error", applogger.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("close %s: %w", nc.name, err)
			}
		}
	}
	a.log.Info("shutdown complete")
	return firstErr
}
