package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalFlow/internal/domain/repository"
	"SignalFlow/internal/engine"
	"SignalFlow/internal/service/wsfeed"
	"SignalFlow/internal/usecase"
	"SignalFlow/pkg/cache"
	pkgch "SignalFlow/pkg/clickhouse"
	"SignalFlow/pkg/config"
	xhttp "SignalFlow/pkg/http"
	pkgkafka "SignalFlow/pkg/kafka"
	applogger "SignalFlow/pkg/logger"
	"SignalFlow/pkg/queue"
)

// Deps carries everything the application lifecycle manages.
type Deps struct {
	Config      *config.Config
	Log         *applogger.Logger
	Detector    *engine.Detector
	Poll        *engine.PollEngine
	Bus         *engine.Bus
	Dispatcher  *usecase.Dispatcher
	Spool       *queue.RedisQueue
	History     repository.HistoryStore
	Consumer    *pkgkafka.Consumer
	Snapshots   *usecase.KafkaSnapshotsHandler
	Feed        *wsfeed.Client
	Producer    *pkgkafka.Producer
	ClickHouse  *pkgch.Client
	Redis       *cache.RedisCache
	HTTPHandler xhttp.Handler
}

// App encapsulates the application lifecycle: it starts the detection
// engines, the delivery side, and the HTTP server, then blocks until a
// shutdown signal and stops everything in reverse order.
type App struct {
	deps        *Deps
	httpServer  *xhttp.Server
	stream      *engine.StreamEngine
	janitorCh   chan struct{}
	janitorDone chan struct{}
}

// New creates a new App instance.
func New(deps *Deps) *App {
	return &App{deps: deps}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	cfg := a.deps.Config
	l := a.deps.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// History schema must exist before any signal fires.
	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	err := a.deps.History.Init(initCtx)
	initCancel()
	if err != nil {
		return err
	}

	// Repeated error logs flush aggregated onto a producer-only queue for the
	// log pipeline.
	logSpool := queue.NewRedisPublisher(l, a.deps.Redis.Client(),
		queue.WithKeyPrefix(a.deps.Redis.Prefix()+":logs"))
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   time.Minute,
		CountThreshold: 100,
		Topic:          "error_logs",
		Publisher:      logSpool,
	})

	// Delivery side first so the first fired signal has somewhere to go.
	for _, nc := range cfg.Delivery.Notifiers {
		switch nc.Type {
		case "webhook":
			a.deps.Dispatcher.Register(usecase.NewWebhookNotifier(nc.ID, nc.URL, nc.Headers, nil))
		case "log":
			a.deps.Dispatcher.Register(usecase.NewLogNotifier(nc.ID, l))
		}
	}
	a.deps.Dispatcher.Attach(a.deps.Bus)
	a.deps.Spool.RegisterJob(usecase.NewDeliveryJob(a.deps.Dispatcher))
	if err := a.deps.Spool.Start(); err != nil {
		return err
	}

	pollMode := cfg.Detection.Mode == "poll" || cfg.Detection.Mode == "both"
	streamMode := cfg.Detection.Mode == "stream" || cfg.Detection.Mode == "both"

	if pollMode {
		a.deps.Poll.Start(ctx)
	}

	if streamMode && a.deps.Feed != nil {
		a.deps.Feed.Start(ctx)
		a.stream = engine.NewStreamEngine(a.deps.Detector, a.deps.Feed.Snapshots(), l)
		a.stream.Start(ctx)
	}

	if streamMode && a.deps.Consumer != nil && a.deps.Snapshots != nil {
		a.deps.Consumer.RegisterHandler(a.deps.Snapshots)
		go func() {
			if err := a.deps.Consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.deps.Snapshots.Topic()))
	}

	a.startJanitor(ctx)

	a.httpServer = xhttp.NewServer(a.deps.HTTPHandler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRequestLogger(l),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	l.Info("application started",
		applogger.String("env", cfg.Environment),
		applogger.String("mode", cfg.Detection.Mode))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// startJanitor purges history rows past the retention horizon on a ticker.
func (a *App) startJanitor(ctx context.Context) {
	retention := a.deps.Config.Detection.Retention
	if retention <= 0 {
		return
	}
	interval := a.deps.Config.Detection.JanitorInterval
	if interval <= 0 {
		interval = time.Hour
	}

	a.janitorCh = make(chan struct{})
	a.janitorDone = make(chan struct{})
	go func() {
		defer close(a.janitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.janitorCh:
				return
			case <-ticker.C:
				purgeCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := a.deps.History.Purge(purgeCtx, time.Now().Add(-retention)); err != nil {
					a.deps.Log.Warn("history purge failed", applogger.Error(err))
				}
				cancel()
			}
		}
	}()
}

// shutdown stops all services in reverse start order.
func (a *App) shutdown() error {
	cfg := a.deps.Config
	l := a.deps.Log

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+10*time.Second)
	defer cancel()

	// Ingest first: no new snapshots, no new signals.
	a.deps.Poll.Stop()
	if a.stream != nil {
		a.stream.Stop()
	}
	if a.deps.Feed != nil {
		a.deps.Feed.Wait()
	}
	if a.deps.Consumer != nil {
		if err := a.deps.Consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.janitorCh != nil {
		close(a.janitorCh)
		<-a.janitorDone
	}

	// Drain in-flight signals before the delivery side goes away.
	a.deps.Bus.Close()
	if err := a.deps.Spool.Stop(ctx); err != nil {
		l.Warn("spool stop error", applogger.Error(err))
	}

	if a.httpServer != nil {
		shutdownCtx, cancelHTTP := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
		cancelHTTP()
	}

	if a.deps.Producer != nil {
		if err := a.deps.Producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	l.RemoveCollector()
	if err := a.deps.History.Close(); err != nil {
		l.Warn("history close error", applogger.Error(err))
	}
	if err := a.deps.ClickHouse.Close(); err != nil {
		l.Warn("clickhouse close error", applogger.Error(err))
	}
	if err := a.deps.Redis.Close(); err != nil {
		l.Warn("redis close error", applogger.Error(err))
	}

	l.Info("shutdown complete")
	return nil
}
