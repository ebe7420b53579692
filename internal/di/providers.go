package di

import (
	"context"
	"fmt"
	"time"

	"ComicScout/internal/domain/repository"
	domsvc "ComicScout/internal/domain/service"
	"ComicScout/internal/handler/api"
	"ComicScout/internal/handler/ws"
	internalrepo "ComicScout/internal/repository"
	"ComicScout/internal/service/marketplace"
	"ComicScout/internal/service/ratelimit"
	"ComicScout/internal/services/market"
	"ComicScout/internal/services/normalizer"
	"ComicScout/internal/usecase"
	"ComicScout/pkg/cache"
	pkgch "ComicScout/pkg/clickhouse"
	"ComicScout/pkg/config"
	xhttp "ComicScout/pkg/http"
	pkgkafka "ComicScout/pkg/kafka"
	"ComicScout/pkg/logger"
	"ComicScout/pkg/metrics"
	pkgpg "ComicScout/pkg/postgres"
	"ComicScout/pkg/server"
)

// Providers below return nil for backends the config leaves disabled.

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient connects and prepares the sales table when sales
// come from ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Sources.Sales != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SalesSchema(internalrepo.DefaultSalesTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	if cfg.Sources.Listings != "postgres" {
		return nil, nil
	}
	client, err := pkgpg.NewClient(
		pkgpg.WithDSN(cfg.Postgres.DSN),
		pkgpg.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ListingsSchema(cfg.Postgres.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

func ProvideMarketplaceClient(cfg *config.Config) *marketplace.Client {
	if cfg.Marketplace.BaseURL == "" {
		return nil
	}
	return marketplace.NewClient(cfg.Marketplace.BaseURL, cfg.Marketplace.APIKey, cfg.Marketplace.Timeout, cfg.Marketplace.Retries)
}

func ProvideListingSource(cfg *config.Config, mp *marketplace.Client, pg *pkgpg.Client) (repository.ListingSource, error) {
	switch cfg.Sources.Listings {
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("listings source postgres: client not configured")
		}
		return internalrepo.NewPGListingStore(pg.DB(), cfg.Postgres.Table), nil
	default:
		if mp == nil {
			return nil, fmt.Errorf("listings source http: marketplace.base_url not set")
		}
		return mp, nil
	}
}

func ProvideSalesStore(ch *pkgch.Client) *internalrepo.CHSalesStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHSalesStore(ch.DB(), internalrepo.DefaultSalesTable)
}

func ProvideSalesSource(cfg *config.Config, mp *marketplace.Client, store *internalrepo.CHSalesStore) (repository.SalesSource, error) {
	switch cfg.Sources.Sales {
	case "clickhouse":
		if store == nil {
			return nil, fmt.Errorf("sales source clickhouse: client not configured")
		}
		return store, nil
	default:
		if mp == nil {
			return nil, fmt.Errorf("sales source http: marketplace.base_url not set")
		}
		return mp, nil
	}
}

// ProvideCache builds an in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		cache.WithLayeredMemoryTTL(cfg.Cache.TTL/2),
	), nil
}

// ProvideMarketValuer memoizes comparables when a cache is available.
func ProvideMarketValuer(sales repository.SalesSource, c cache.Service, cfg *config.Config, log *logger.Logger) domsvc.MarketValuer {
	base := market.NewComparablesValuer(sales)
	if c == nil {
		return base
	}
	return market.NewCachedValuer(base, c, cfg.Cache.TTL, log)
}

func ProvideValueInvalidator(v domsvc.MarketValuer) usecase.ValueInvalidator {
	if inv, ok := v.(usecase.ValueInvalidator); ok {
		return inv
	}
	return nil
}

func ProvideDealScorer() domsvc.DealScorer {
	return market.NewDealScorer()
}

func ProvideTitleNormalizer() domsvc.TitleNormalizer {
	return normalizer.New()
}

func ProvideTopDealsUseCase(
	listings repository.ListingSource,
	valuer domsvc.MarketValuer,
	scorer domsvc.DealScorer,
	titles domsvc.TitleNormalizer,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.TopDealsUseCase {
	return usecase.NewTopDealsUseCase(listings, valuer, scorer, titles, m, log).
		WithLimits(cfg.Deals.Workers, cfg.Deals.WindowDays, cfg.Deals.Timeout)
}

func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideDealPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.DealPublisher {
	if producer == nil || cfg.Kafka.DealsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaDealPublisher(producer, cfg.Kafka.DealsTopic)
}

func ProvideHub(log *logger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideLocker returns the shared cache as the refresh lock, if any.
func ProvideLocker(c cache.Service) usecase.Locker {
	if c == nil {
		return nil
	}
	return c
}

func ProvideDealFeed(
	uc *usecase.TopDealsUseCase,
	pub repository.DealPublisher,
	hub *ws.Hub,
	lock usecase.Locker,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.DealFeed {
	return usecase.NewDealFeed(uc, pub, hub, lock, m, log, cfg.Deals.RefreshInterval, cfg.DealsMinScore(), cfg.Deals.SearchTerms)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Deals.RateLimit.Capacity, cfg.Deals.RateLimit.RefillPerSec)
}

func ProvideDealsHandler(
	log *logger.Logger,
	uc *usecase.TopDealsUseCase,
	titles domsvc.TitleNormalizer,
	valuer domsvc.MarketValuer,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
) *api.DealsEchoHandler {
	return api.NewDealsEchoHandler(log, uc, titles, valuer, limiter, cfg.DealsMinScore(), cfg.Deals.SearchTerms)
}

func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
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

func ProvideSalesIngestHandler(
	cfg *config.Config,
	store *internalrepo.CHSalesStore,
	values usecase.ValueInvalidator,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.SalesIngestHandler {
	if store == nil || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewSalesIngestHandler(cfg.Kafka.SalesTopic, store, values, m, log)
}

// ProvideApp assembles the server and attaches the log collector when enabled.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	deals *api.DealsEchoHandler,
	hub *ws.Hub,
	feed *usecase.DealFeed,
	consumer *pkgkafka.Consumer,
	ingest *usecase.SalesIngestHandler,
	pub repository.DealPublisher,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	pg *pkgpg.Client,
	c cache.Service,
) *server.App {
	if cfg.Logging.Collector.Enabled && producer != nil {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.Threshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}

	var handler pkgkafka.MessageHandler
	if ingest != nil {
		handler = ingest
	}
	app := server.New(cfg, log, []xhttp.Handler{deals, hub}, hub, feed, consumer, handler)

	// The deal feed closes the producer through its publisher.
	if producer != nil && pub == nil {
		app.AddCloser("kafka producer", producer)
	}
	if pg != nil {
		app.AddCloser("postgres", pg)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	if closer, ok := c.(interface{ Close() error }); ok {
		app.AddCloser("cache", closer)
	}
	return app
}
