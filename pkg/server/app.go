package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Tradia/internal/handler/api"
	"Tradia/internal/usecase"
	pkgch "Tradia/pkg/clickhouse"
	"Tradia/pkg/config"
	xhttp "Tradia/pkg/http"
	pkgkafka "Tradia/pkg/kafka"
	applogger "Tradia/pkg/logger"
	"Tradia/pkg/queue"
)

// App encapsulates the application lifecycle: scanner, live price collector,
// outcome tracker, optional Kafka consumer and the HTTP read API.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	scanner    *usecase.Scanner
	collector  *usecase.PriceCollector
	tracker    *usecase.OutcomeTracker
	proc       *usecase.SignalProcessor
	consumer   *pkgkafka.Consumer
	scanQueue  *queue.RedisQueue
	handler    *api.SignalsHandler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates an App with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	collector *usecase.PriceCollector,
	tracker *usecase.OutcomeTracker,
	proc *usecase.SignalProcessor,
	consumer *pkgkafka.Consumer,
	scanQueue *queue.RedisQueue,
	handler *api.SignalsHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    l,
		scanner:   scanner,
		collector: collector,
		tracker:   tracker,
		proc:      proc,
		consumer:  consumer,
		scanQueue: scanQueue,
		handler:   handler,
		chClient:  chClient,
	}
}

// Run starts all components and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.logger),
	)

	go a.scanner.Run(ctx)
	a.logger.Info("scanner started",
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Duration("interval", a.cfg.Scanner.Interval))

	go func() {
		if err := a.tracker.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("outcome tracker stopped", applogger.Error(err))
		}
	}()

	if err := a.collector.Start(ctx); err != nil {
		// outcome tracking degrades to deadline sweeps without a stream
		a.logger.Warn("price collector unavailable", applogger.Error(err))
	} else {
		a.logger.Info("price collector started")
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.Topic))
	}

	if a.scanQueue != nil {
		if err := a.scanQueue.Start(); err != nil {
			a.logger.Warn("scan queue start error", applogger.Error(err))
		} else {
			a.scanQueue.StartRetryProcessor()
			a.logger.Info("scan queue started", applogger.Int("workers", a.cfg.Scanner.QueueWorkers))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops components in reverse dependency order.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.collector.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("price collector stop error", applogger.Error(err))
	}

	if a.scanQueue != nil {
		if err := a.scanQueue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scan queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.proc != nil {
		a.proc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
