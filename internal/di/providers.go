package di

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"SignalFlow/internal/domain/repository"
	"SignalFlow/internal/engine"
	"SignalFlow/internal/handler/api"
	internalrepo "SignalFlow/internal/repository"
	"SignalFlow/internal/rules"
	"SignalFlow/internal/service/wsfeed"
	"SignalFlow/internal/usecase"
	"SignalFlow/pkg/cache"
	pkgch "SignalFlow/pkg/clickhouse"
	"SignalFlow/pkg/config"
	xhttp "SignalFlow/pkg/http"
	pkgkafka "SignalFlow/pkg/kafka"
	"SignalFlow/pkg/logger"
	"SignalFlow/pkg/metrics"
	"SignalFlow/pkg/queue"
	"SignalFlow/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lcfg := &logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lcfg.Level == "" {
		lcfg.Level = "info"
	}
	if lcfg.Format == "" {
		lcfg.Format = "console"
	}
	if lcfg.Output == "" {
		lcfg.Output = "stdout"
	}
	return logger.New(lcfg)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxConnections, cfg.ClickHouse.MaxConnections/2),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideRedisCache creates the shared Redis connection.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := cache.NewRedisCache(
		cache.WithAddr(host, port),
		cache.WithPassword(cfg.Redis.Password),
		cache.WithDB(cfg.Redis.DB),
		cache.WithPool(cfg.Redis.PoolSize, 0, 0),
		cache.WithPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRegistry loads and validates the rule catalog.
func ProvideRegistry() (*rules.Registry, error) {
	return rules.Load()
}

// ProvideSnapshotSource creates the ClickHouse latest-row source over the
// tables the catalog watches.
func ProvideSnapshotSource(ch *pkgch.Client, registry *rules.Registry) repository.SnapshotSource {
	return internalrepo.NewClickHouseSnapshotSource(ch.DB(), registry.Tables())
}

// ProvideHistoryStore creates the signal history store.
func ProvideHistoryStore(ch *pkgch.Client) repository.HistoryStore {
	return internalrepo.NewClickHouseHistoryStore(ch.DB(), "signal_history")
}

// ProvideCooldownStore creates the Redis cooldown store.
func ProvideCooldownStore(rc *cache.RedisCache) repository.CooldownStore {
	return internalrepo.NewRedisCooldownStore(rc.Client(), rc.Prefix())
}

// ProvideSubscriptionStore creates the Redis subscription store.
func ProvideSubscriptionStore(rc *cache.RedisCache, registry *rules.Registry) repository.SubscriptionStore {
	return internalrepo.NewRedisSubscriptionStore(rc.Client(), rc.Prefix(), registry.Tables())
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithProducerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithProducerAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithProducerCompression(cfg.Kafka.Compression),
		pkgkafka.WithProducerKeyHashing(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher creates the firehose publisher, or nil without Kafka.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates the snapshots consumer, or nil without Kafka.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.SnapshotsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideBus creates the signal bus.
func ProvideBus(cfg *config.Config, log *logger.Logger) *engine.Bus {
	return engine.NewBus(log, engine.WithBusBuffer(cfg.Detection.BusBuffer))
}

// ProvideDetector creates the shared detection core.
func ProvideDetector(
	registry *rules.Registry,
	cooldowns repository.CooldownStore,
	history repository.HistoryStore,
	bus *engine.Bus,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *engine.Detector {
	return engine.NewDetector(registry, cooldowns, history, bus, m, log,
		engine.WithMaxAge(cfg.Detection.MaxSnapshotAge))
}

// ProvidePollEngine creates the poll engine.
func ProvidePollEngine(
	det *engine.Detector,
	source repository.SnapshotSource,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *engine.PollEngine {
	return engine.NewPollEngine(det, source, m, log, cfg.Detection.PollInterval)
}

// ProvideFeedClient creates the WebSocket push feed, or nil when disabled.
func ProvideFeedClient(cfg *config.Config, registry *rules.Registry, log *logger.Logger) *wsfeed.Client {
	if !cfg.Feed.Enabled || cfg.Feed.WebSocketURL == "" {
		return nil
	}
	return wsfeed.New(cfg.Feed.WebSocketURL, registry.Tables(), log,
		wsfeed.WithReconnectDelay(cfg.Feed.ReconnectDelay),
		wsfeed.WithPingInterval(cfg.Feed.PingInterval),
	)
}

// ProvideSpoolQueue creates the delivery retry queue.
func ProvideSpoolQueue(cfg *config.Config, rc *cache.RedisCache, log *logger.Logger) *queue.RedisQueue {
	return queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Delivery.Workers,
		RetryLimit: cfg.Delivery.RetryLimit,
		RetryDelay: cfg.Delivery.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix(rc.Prefix()+":deliveries"))
}

// ProvideDispatcher creates the signal dispatcher.
func ProvideDispatcher(
	subs repository.SubscriptionStore,
	m repository.Metrics,
	log *logger.Logger,
	firehose repository.SignalPublisher,
	spool *queue.RedisQueue,
	cfg *config.Config,
) *usecase.Dispatcher {
	opts := []usecase.DispatcherOption{
		usecase.WithThrottle(cfg.Delivery.ThrottleCapacity, cfg.Delivery.ThrottleRefill),
		usecase.WithSpool(spool),
	}
	if firehose != nil {
		opts = append(opts, usecase.WithFirehose(firehose))
	}
	return usecase.NewDispatcher(subs, m, log, opts...)
}

// ProvideSnapshotsHandler registers the detector behind the snapshots topic.
func ProvideSnapshotsHandler(det *engine.Detector, cfg *config.Config) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.SnapshotsTopic, det)
}

// ProvideHTTPHandler assembles the API router with dependency probes.
func ProvideHTTPHandler(
	log *logger.Logger,
	history repository.HistoryStore,
	subs repository.SubscriptionStore,
	registry *rules.Registry,
	ch *pkgch.Client,
	rc *cache.RedisCache,
) xhttp.Handler {
	router := api.NewRouter(
		api.NewSignalsHandler(log, history, registry),
		api.NewSubscriptionsHandler(log, subs),
	)
	router.AddProbe("clickhouse", ch.Health)
	router.AddProbe("redis", func(ctx context.Context) error {
		return rc.Client().Ping(ctx).Err()
	})
	return router
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	det *engine.Detector,
	poll *engine.PollEngine,
	bus *engine.Bus,
	dispatcher *usecase.Dispatcher,
	spool *queue.RedisQueue,
	history repository.HistoryStore,
	consumer *pkgkafka.Consumer,
	snapshots *usecase.KafkaSnapshotsHandler,
	feed *wsfeed.Client,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	httpHandler xhttp.Handler,
) *server.App {
	return server.New(&server.Deps{
		Config:      cfg,
		Log:         log,
		Detector:    det,
		Poll:        poll,
		Bus:         bus,
		Dispatcher:  dispatcher,
		Spool:       spool,
		History:     history,
		Consumer:    consumer,
		Snapshots:   snapshots,
		Feed:        feed,
		Producer:    producer,
		ClickHouse:  ch,
		Redis:       rc,
		HTTPHandler: httpHandler,
	})
}
