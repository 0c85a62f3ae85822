package di

import (
	"context"
	"fmt"
	"time"

	drepo "RWAPrice/internal/domain/repository"
	"RWAPrice/internal/handler/api"
	internalrepo "RWAPrice/internal/repository"
	igenai "RWAPrice/internal/service/genai"
	"RWAPrice/internal/service/ratelimit"
	"RWAPrice/internal/service/sources"
	"RWAPrice/internal/usecase"
	xcache "RWAPrice/pkg/cache"
	pkgch "RWAPrice/pkg/clickhouse"
	"RWAPrice/pkg/config"
	xhttp "RWAPrice/pkg/http"
	pkgkafka "RWAPrice/pkg/kafka"
	applogger "RWAPrice/pkg/logger"
	"RWAPrice/pkg/metrics"
	"RWAPrice/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideCache creates the response cache for upstream data sources.
// Layered (memory over Redis) when Redis is configured, in-process otherwise.
func ProvideCache(cfg *config.Config) (xcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return xcache.NewMemoryCache(xcache.WithMemoryMaxSize(1000)), nil
	}
	rc, err := xcache.NewRedisCache(
		xcache.WithRedisHost(cfg.Cache.Redis.Host),
		xcache.WithRedisPort(cfg.Cache.Redis.Port),
		xcache.WithRedisPassword(cfg.Cache.Redis.Password),
		xcache.WithRedisDB(cfg.Cache.Redis.DB),
		xcache.WithRedisPrefix("rwaprice"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return xcache.NewLayeredCache(rc), nil
}

// ProvideLimiter creates the outbound rate limiter shared by all sources.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Sources.RateLimit.Capacity, cfg.Sources.RateLimit.RefillPerSec)
}

// ProvideSources builds the four upstream signal source clients.
func ProvideSources(cfg *config.Config, limiter *ratelimit.Limiter, cache xcache.Service, logger *applogger.Logger) []drepo.SignalSource {
	timeout := cfg.Sources.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return []drepo.SignalSource{
		sources.NewMarketClient(cfg.Sources.Market.URL, cfg.Sources.Market.APIKey, timeout, cfg.Sources.Market.CacheTTL, limiter, cache, logger),
		sources.NewSentimentClient(cfg.Sources.Sentiment.URL, timeout, limiter, logger),
		sources.NewMacroClient(cfg.Sources.Macro.URL, cfg.Sources.Macro.APIKey, timeout, cfg.Sources.Macro.CacheTTL, limiter, cache, logger),
		sources.NewChainMetaClient(cfg.Sources.Chain.RPCURL, timeout, limiter, logger),
	}
}

// ProvideGenerator creates the LLM generation client.
func ProvideGenerator(cfg *config.Config) (drepo.Generator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gen, err := igenai.NewGenerator(ctx, cfg.Generation.APIKey, cfg.Generation.Model, cfg.Generation.Temperature)
	if err != nil {
		return nil, fmt.Errorf("generation client: %w", err)
	}
	return gen, nil
}

// ProvideEmbedder creates the text embedder per configured provider.
func ProvideEmbedder(cfg *config.Config) (drepo.Embedder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return igenai.NewEmbedder(ctx, igenai.EmbedderConfig{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
}

// ProvideKnowledgeStore creates the durable knowledge base.
func ProvideKnowledgeStore(cfg *config.Config, embedder drepo.Embedder, logger *applogger.Logger) (drepo.KnowledgeStore, error) {
	return internalrepo.NewFileKnowledgeStore(cfg.Knowledge.Dir, embedder, logger)
}

// ProvideAssetCatalog loads the asset catalog from YAML.
func ProvideAssetCatalog(cfg *config.Config) (drepo.AssetCatalog, error) {
	return internalrepo.NewYAMLAssetCatalog(cfg.Assets.CatalogPath)
}

// ProvideClickHouseClient creates a ClickHouse client when auditing is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Audit.ClickHouse.Host),
		pkgch.WithPort(cfg.Audit.ClickHouse.Port),
		pkgch.WithDatabase(cfg.Audit.ClickHouse.Database),
		pkgch.WithCredentials(cfg.Audit.ClickHouse.User, cfg.Audit.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.Audit.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.Audit.ClickHouse.AsyncInsert, cfg.Audit.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.Audit.ClickHouse.DialTimeout, cfg.Audit.ClickHouse.ReadTimeout, cfg.Audit.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.Audit.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS rwaprice",
		"CREATE TABLE IF NOT EXISTS rwaprice.pricing_audit (ts DateTime, asset_id String, price Float64, confidence Float64, factors String, payload String, fallback UInt8) ENGINE=MergeTree ORDER BY (asset_id, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideAuditSink creates the pricing audit trail writer.
func ProvideAuditSink(chClient *pkgch.Client, cfg *config.Config) drepo.AuditSink {
	if chClient == nil {
		return internalrepo.NoopAudit{}
	}
	return internalrepo.NewClickHouseAudit(chClient.DB(), cfg.Audit.ClickHouse.Database+".pricing_audit")
}

// ProvideKafkaProducer creates a Kafka producer when brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.KafkaEnabled() {
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

// ProvideSignalPublisher creates the price signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.SignalPublisher {
	if producer == nil || cfg.Kafka.SignalsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer when an observations topic is configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.KafkaEnabled() || cfg.Kafka.ObservationsTopic == "" {
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

// ProvideObservationsHandler registers the handler for the observations topic.
func ProvideObservationsHandler(pricer *usecase.Pricer, m drepo.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if cfg.Kafka.ObservationsTopic == "" {
		return nil
	}
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.ObservationsTopic, pricer, m)
}

// ProvideAggregator creates the concurrent signal aggregator.
func ProvideAggregator(srcs []drepo.SignalSource, cfg *config.Config, m drepo.Metrics, logger *applogger.Logger) *usecase.Aggregator {
	timeout := cfg.Sources.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return usecase.NewAggregator(srcs, timeout, m, logger)
}

// ProvideSynthesizer creates the prompt synthesizer.
func ProvideSynthesizer(gen drepo.Generator, m drepo.Metrics, logger *applogger.Logger) *usecase.Synthesizer {
	return usecase.NewSynthesizer(gen, m, logger)
}

// ProvidePricer creates the pricing orchestrator.
func ProvidePricer(
	agg *usecase.Aggregator,
	syn *usecase.Synthesizer,
	knowledge drepo.KnowledgeStore,
	audit drepo.AuditSink,
	publisher drepo.SignalPublisher,
	m drepo.Metrics,
	logger *applogger.Logger,
) *usecase.Pricer {
	return usecase.NewPricer(agg, syn, knowledge, audit, publisher, m, logger)
}

// ProvidePricingHandler creates the Echo HTTP handler.
func ProvidePricingHandler(logger *applogger.Logger, pricer *usecase.Pricer, catalog drepo.AssetCatalog, cfg *config.Config) xhttp.Handler {
	return api.NewPricingEchoHandler(logger, pricer, catalog, cfg.Auth.APIToken)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	knowledge drepo.KnowledgeStore,
	publisher drepo.SignalPublisher,
	audit drepo.AuditSink,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Aggregated error reporting goes through the signals producer when available.
	if pub, ok := publisher.(applogger.Publisher); ok {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "rwaprice.error-logs",
			Publisher:      pub,
		})
	}
	return server.New(cfg, logger, handler, consumer, kh, chClient, knowledge, publisher, audit)
}
