package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"DeclCast/pkg/config"
	xhttp "DeclCast/pkg/http"
	applogger "DeclCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handlers   []xhttp.Handler
	closers    []io.Closer
	httpServer *xhttp.Server
}

// New creates a new App. Closers are released in reverse order on shutdown.
func New(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler, closers ...io.Closer) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, l: l, handlers: handlers, closers: closers}
}

// Server builds the HTTP server on first use.
func (a *App) Server() *xhttp.Server {
	if a.httpServer != nil {
		return a.httpServer
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithBodyLimit(a.cfg.Server.BodyLimit),
		xhttp.WithLogger(a.l),
	}
	if len(a.cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORS(a.cfg.Server.CORSOrigins))
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	a.httpServer = xhttp.NewServer(a.handlers, opts...)
	return a.httpServer
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Server().Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("declcast started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("store", a.cfg.Storage.Backend),
		applogger.String("evaluation", a.cfg.Evaluation.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops the HTTP server and releases every closer.
func (a *App) Shutdown(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	a.Close()
	a.l.Info("shutdown complete")
	return nil
}

// Close releases infrastructure clients without touching the HTTP server.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}
	a.closers = nil
}
