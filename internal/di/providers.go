package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TypoTrade/internal/domain/repository"
	"TypoTrade/internal/handler/api"
	internalrepo "TypoTrade/internal/repository"
	"TypoTrade/internal/service/alpaca"
	"TypoTrade/internal/service/nasdaq"
	"TypoTrade/internal/services/analytics"
	"TypoTrade/internal/services/matching"
	"TypoTrade/internal/usecase"
	"TypoTrade/pkg/cache"
	pkgch "TypoTrade/pkg/clickhouse"
	"TypoTrade/pkg/config"
	xhttp "TypoTrade/pkg/http"
	pkgkafka "TypoTrade/pkg/kafka"
	applogger "TypoTrade/pkg/logger"
	"TypoTrade/pkg/metrics"
	"TypoTrade/pkg/server"
)

// ProvideLogger creates the application logger. Production environments
// log JSON, everything else gets console output.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	l, err := applogger.New(&applogger.Config{
		Level:  "info",
		Format: format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client. The connection is
// lazy; the schema is applied by ProvideResultStore only when the
// ClickHouse backend is selected.
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
	return client, nil
}

// ProvideResultStore creates the ClickHouse result store and applies the
// study schema when the backend needs it.
func ProvideResultStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.ResultStore, error) {
	store := internalrepo.NewCHResultStore(chClient)
	store.SetLogger(l)

	if cfg.Backend.Type == "clickhouse" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideResultPublisher creates the Kafka result publisher.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideResultSink routes study output to the configured backend.
func ProvideResultSink(
	pub repository.Publisher,
	store repository.ResultStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ResultSink {
	return usecase.NewResultSink(pub, store, m, cfg.Backend.Type)
}

// ProvideCache creates the cache service: layered memory+Redis when Redis
// is enabled, plain in-memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, port := splitAddr(cfg.Cache.Redis.Addr)
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideBarSource creates the Alpaca market data client wrapped with the
// read-through bar cache.
func ProvideBarSource(cfg *config.Config, c cache.Service) repository.BarSource {
	client := alpaca.NewClient(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		alpaca.WithFeed(cfg.Alpaca.Feed),
	)
	return internalrepo.NewCachedBarSource(client, c, cfg.Cache.TTL)
}

// ProvideNasdaqClient creates the NASDAQ directory and IPO calendar client.
func ProvideNasdaqClient(cfg *config.Config) *nasdaq.Client {
	opts := []nasdaq.ClientOption{
		nasdaq.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Nasdaq.Timeout))),
		nasdaq.WithRequestDelay(cfg.Nasdaq.RequestDelay),
	}
	if cfg.Nasdaq.ListingURL != "" && cfg.Nasdaq.OtherListingURL != "" {
		opts = append(opts, nasdaq.WithListingURLs(cfg.Nasdaq.ListingURL, cfg.Nasdaq.OtherListingURL))
	}
	if cfg.Nasdaq.CalendarURL != "" {
		opts = append(opts, nasdaq.WithCalendarURL(cfg.Nasdaq.CalendarURL))
	}
	if cfg.Nasdaq.UserAgent != "" {
		opts = append(opts, nasdaq.WithUserAgent(cfg.Nasdaq.UserAgent))
	}
	return nasdaq.NewClient(opts...)
}

// ProvideUniverseSource exposes the NASDAQ client as a universe source.
func ProvideUniverseSource(c *nasdaq.Client) repository.UniverseSource { return c }

// ProvideIPOSource exposes the NASDAQ client as an IPO calendar source.
func ProvideIPOSource(c *nasdaq.Client) repository.IPOSource { return c }

// ProvideMatcher creates the typo-candidate matcher.
func ProvideMatcher(cfg *config.Config) (*matching.Matcher, error) {
	return matching.NewMatcher(cfg.Study.DistanceThreshold, cfg.Study.Workers)
}

// ProvideAnomalyDetector creates the rolling-window volume anomaly detector.
func ProvideAnomalyDetector(cfg *config.Config) (*analytics.AnomalyDetector, error) {
	return analytics.NewAnomalyDetector(
		cfg.Study.RollingWindow,
		cfg.Study.VolumeAnomalyK,
		cfg.Study.VolumeRatioThreshold,
	)
}

// ProvideCorrelationEngine creates the correlation engine.
func ProvideCorrelationEngine(cfg *config.Config) (*analytics.CorrelationEngine, error) {
	return analytics.NewCorrelationEngine(
		cfg.Study.MinCorrelationSample,
		time.Duration(cfg.Study.TimeBucketWidthMinutes)*time.Minute,
	)
}

// ProvideBacktestSimulator creates the hedged backtest simulator.
func ProvideBacktestSimulator(cfg *config.Config) (*analytics.BacktestSimulator, error) {
	return analytics.NewBacktestSimulator(cfg.Study.SpikeCaptureFraction)
}

// ProvidePairScanner creates the pair discovery use case.
func ProvidePairScanner(
	universe repository.UniverseSource,
	bars repository.BarSource,
	matcher *matching.Matcher,
	sink *usecase.ResultSink,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PairScanner {
	scanner := usecase.NewPairScanner(universe, bars, matcher, sink, m,
		cfg.Study.Targets, cfg.Study.TopVolumeCount)
	scanner.SetLogger(l)
	return scanner
}

// ProvidePairStudy creates the correlation and backtest use case.
func ProvidePairStudy(
	bars repository.BarSource,
	detector *analytics.AnomalyDetector,
	engine *analytics.CorrelationEngine,
	simulator *analytics.BacktestSimulator,
	sink *usecase.ResultSink,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) (*usecase.PairStudy, error) {
	study, err := usecase.NewPairStudy(bars, detector, engine, simulator, sink, m,
		cfg.Study.LookbackDays, cfg.Study.IntradayLookbackDays)
	if err != nil {
		return nil, err
	}
	study.SetLogger(l)
	return study, nil
}

// ProvideIPOStudy creates the IPO event study use case.
func ProvideIPOStudy(
	universe repository.UniverseSource,
	ipos repository.IPOSource,
	bars repository.BarSource,
	sink *usecase.ResultSink,
	m repository.Metrics,
	simulator *analytics.BacktestSimulator,
	cfg *config.Config,
	l *applogger.Logger,
) (*usecase.IPOStudy, error) {
	study, err := usecase.NewIPOStudy(universe, ipos, bars, sink, m, simulator,
		cfg.Study.DistanceThreshold, cfg.Study.VolumeRatioThreshold)
	if err != nil {
		return nil, err
	}
	study.SetLogger(l)
	return study, nil
}

// ProvideStudyHandler creates the HTTP query handler.
func ProvideStudyHandler(l *applogger.Logger, store repository.ResultStore) *api.StudyEchoHandler {
	return api.NewStudyEchoHandler(l, store)
}

// ProvideApp creates the application runner.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.PairScanner,
	study *usecase.PairStudy,
	ipoStudy *usecase.IPOStudy,
	sink *usecase.ResultSink,
	handler *api.StudyEchoHandler,
) *server.App {
	return server.New(cfg, l, scanner, study, ipoStudy, sink, handler)
}
