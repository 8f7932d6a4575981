package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"Tradia/internal/domain/repository"
	domsvc "Tradia/internal/domain/service"
	"Tradia/internal/handler/api"
	mid "Tradia/internal/middleware"
	internalrepo "Tradia/internal/repository"
	icache "Tradia/internal/service/cache"
	"Tradia/internal/service/polygon"
	"Tradia/internal/services/analytics"
	"Tradia/internal/usecase"
	pkgcache "Tradia/pkg/cache"
	pkgch "Tradia/pkg/clickhouse"
	"Tradia/pkg/config"
	pkgkafka "Tradia/pkg/kafka"
	applogger "Tradia/pkg/logger"
	"Tradia/pkg/metrics"
	"Tradia/pkg/queue"
	"Tradia/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SignalSchemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the layered response cache (memory over Redis).
// Falls back to memory-only when Redis is disabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, _ := strconv.Atoi(portStr)
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	return pkgcache.NewLayeredCache(redisCache), nil
}

// ProvideMarketData creates the Polygon REST client. Bars and company names
// cache in Redis when available, in-process otherwise.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	var bytesCache icache.BytesCache = icache.NewTTLCache()
	if cfg.Redis.Enabled {
		bytesCache = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return polygon.NewClient(cfg.Polygon.APIKey, cfg.Polygon.BaseURL,
		polygon.WithCache(bytesCache),
		polygon.WithLogger(l),
		polygon.WithHTTPTimeout(cfg.Polygon.Timeout),
	)
}

// ProvideMarketStream creates the Polygon WebSocket trade stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return polygon.NewStream(
		cfg.Polygon.APIKey,
		cfg.Polygon.WebSocketURL,
		cfg.Polygon.ReconnectDelay,
		cfg.Polygon.PingInterval,
		l,
	)
}

// ProvideEdgeScorer selects the model-service scorer when configured,
// otherwise the local heuristic.
func ProvideEdgeScorer(cfg *config.Config) domsvc.EdgeScorer {
	if cfg.Analytics.ModelServiceURL != "" {
		return analytics.NewHTTPEdgeScorer(cfg)
	}
	return analytics.NewLocalEdgeScorer()
}

// ProvideRanker selects the model-service ranker when configured,
// otherwise the local star ranker with a top-5 cut.
func ProvideRanker(cfg *config.Config) domsvc.SignalRanker {
	if cfg.Analytics.ModelServiceURL != "" {
		return analytics.NewHTTPRanker(cfg)
	}
	return analytics.NewStarRanker(5)
}

// ProvideBarStore creates the ClickHouse bar store.
func ProvideBarStore(chClient *pkgch.Client, l *applogger.Logger) repository.BarStore {
	store := internalrepo.NewCHBarStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideSignalStore creates the ClickHouse signal store.
func ProvideSignalStore(chClient *pkgch.Client, l *applogger.Logger) repository.SignalStore {
	store := internalrepo.NewCHSignalStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer. Nil when the backend is
// ClickHouse-direct.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the Kafka signal publisher. Nil when the
// backend writes to ClickHouse directly.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer when running the kafka
// backend with a configured group.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" || cfg.Kafka.Consumer.GroupID == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSignalsHandler registers the handler for the signals topic.
func ProvideKafkaSignalsHandler(store repository.SignalStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaSignalsHandler {
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideSignalProcessor creates the signal emit path for the configured backend.
func ProvideSignalProcessor(
	pub repository.Publisher,
	store repository.SignalStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalProcessor {
	return usecase.NewSignalProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideScanner creates the periodic market scanner.
func ProvideScanner(
	cfg *config.Config,
	market repository.MarketData,
	bars repository.BarStore,
	proc *usecase.SignalProcessor,
	scorer domsvc.EdgeScorer,
	ranker domsvc.SignalRanker,
	m repository.Metrics,
	cacheSvc pkgcache.Service,
	l *applogger.Logger,
) *usecase.Scanner {
	return usecase.NewScanner(cfg, market, bars, proc, scorer, ranker, m, cacheSvc, l)
}

// ProvideScanQueue creates the Redis-backed scan job queue. Nil when Redis
// is disabled; ad-hoc rescans then fall back to direct calls.
func ProvideScanQueue(cfg *config.Config, cacheSvc pkgcache.Service, scanner *usecase.Scanner, l *applogger.Logger) *queue.RedisQueue {
	layered, ok := cacheSvc.(*pkgcache.LayeredCache)
	if !ok || !cfg.Redis.Enabled {
		return nil
	}
	job := usecase.NewScanTickerJob(scanner, l)
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    cfg.Scanner.QueueWorkers,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, layered.RedisClient(), []queue.Job{job})
}

// ProvideOutcomeTracker creates the outcome tracker. Bar storage and the
// market client back the pre-expiry target recheck.
func ProvideOutcomeTracker(store repository.SignalStore, bars repository.BarStore, market repository.MarketData, m repository.Metrics, l *applogger.Logger) *usecase.OutcomeTracker {
	return usecase.NewOutcomeTracker(store, bars, market, m, 5*time.Minute, l)
}

// ProvidePriceCollector creates the live price collector feeding the tracker
// through the validation/throttle pipeline.
func ProvidePriceCollector(
	stream repository.MarketStream,
	tracker *usecase.OutcomeTracker,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PriceCollector {
	pipe := mid.NewPricePipeline(tracker, m,
		mid.WithMaxRPS(10),
		mid.WithBufferSize(2000),
	)
	return usecase.NewPriceCollector(stream, tracker, pipe, m, time.Minute, l)
}

// ProvideSignalsQuery creates the read-side query service.
func ProvideSignalsQuery(store repository.SignalStore, cacheSvc pkgcache.Service, cfg *config.Config, l *applogger.Logger) *usecase.SignalsQuery {
	return usecase.NewSignalsQuery(store, cacheSvc, cfg.Analytics.CacheTTL.Signals, cfg.Analytics.CacheTTL.Stats, l)
}

// ProvideSignalsHandler creates the HTTP handler for the signals API.
func ProvideSignalsHandler(l *applogger.Logger, query *usecase.SignalsQuery, tracker *usecase.OutcomeTracker) *api.SignalsHandler {
	return api.NewSignalsHandler(l, query, tracker)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	collector *usecase.PriceCollector,
	tracker *usecase.OutcomeTracker,
	proc *usecase.SignalProcessor,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	scanQueue *queue.RedisQueue,
	handler *api.SignalsHandler,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
		consumer.RegisterHandler(kh)
	}
	return server.New(cfg, l, scanner, collector, tracker, proc, consumer, scanQueue, handler, chClient)
}
