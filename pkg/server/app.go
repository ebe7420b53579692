package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ComicScout/internal/handler/ws"
	"ComicScout/internal/usecase"
	"ComicScout/pkg/config"
	xhttp "ComicScout/pkg/http"
	pkgkafka "ComicScout/pkg/kafka"
	applogger "ComicScout/pkg/logger"
)

// App owns the process lifecycle: HTTP server, deal feed, sale consumer and
// the infrastructure clients that need closing.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	handlers []xhttp.Handler
	hub      *ws.Hub
	feed     *usecase.DealFeed
	consumer *pkgkafka.Consumer
	ingest   pkgkafka.MessageHandler
	closers  []namedCloser

	httpServer *xhttp.Server
	cancel     context.CancelFunc
}

type namedCloser struct {
	name string
	c    io.Closer
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	handlers []xhttp.Handler,
	hub *ws.Hub,
	feed *usecase.DealFeed,
	consumer *pkgkafka.Consumer,
	ingest pkgkafka.MessageHandler,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:      cfg,
		log:      log,
		handlers: handlers,
		hub:      hub,
		feed:     feed,
		consumer: consumer,
		ingest:   ingest,
	}
}

// AddCloser registers a resource closed on shutdown, in reverse order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Start brings up every component without blocking.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(a.log),
	)

	if a.feed != nil {
		if err := a.feed.Start(ctx); err != nil {
			return err
		}
	}

	if a.consumer != nil && a.ingest != nil {
		a.consumer.RegisterHandler(a.ingest)
		if err := a.consumer.Start(ctx); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.ingest.Topic()))
	}

	return a.httpServer.Start()
}

// Run starts the app and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		a.log.Error("app start failed", applogger.Error(err))
		_ = a.Shutdown(ctx)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.Shutdown(ctx)
}

// Shutdown stops intake first, then background work, then closes clients.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.log.RemoveCollector()
	if a.feed != nil {
		if err := a.feed.Shutdown(ctx); err != nil {
			a.log.Warn("deal feed stop error", applogger.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
