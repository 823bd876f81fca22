package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"FXBias/internal/domain/repository"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/handler/api"
	internalrepo "FXBias/internal/repository"
	"FXBias/internal/service/alphavantage"
	icache "FXBias/internal/service/cache"
	"FXBias/internal/services/analytics"
	"FXBias/internal/usecase"
	pkgcache "FXBias/pkg/cache"
	pkgch "FXBias/pkg/clickhouse"
	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
	pkgkafka "FXBias/pkg/kafka"
	applogger "FXBias/pkg/logger"
	"FXBias/pkg/metrics"
	"FXBias/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient connects to Redis when enabled; nil otherwise.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client, err := pkgcache.NewRedisClient(context.Background(),
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideClickHouseClient connects to ClickHouse and prepares the snapshot
// table when enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(context.Background(),
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.HistorySchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when enabled; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithAutoCreateTopic(config.Enabled(cfg.Kafka.AutoCreateTopic)),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideStateRepository keeps the session in Redis when available.
func ProvideStateRepository(cfg *config.Config, rc *redis.Client, l *applogger.Logger) repository.StateRepository {
	if rc == nil {
		return nil
	}
	return internalrepo.NewRedisStateStore(rc, cfg.Redis.StateKey, l)
}

// ProvideHistoryRepository stores daily snapshots in ClickHouse when available.
func ProvideHistoryRepository(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.HistoryRepository {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHHistoryStore(ch, cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table, l)
}

// ProvidePublisher publishes analyses to Kafka when available.
func ProvidePublisher(cfg *config.Config, p *pkgkafka.Producer) repository.Publisher {
	if p == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(p, cfg.Kafka.Topic)
}

// ProvideSharedCache shares market data between instances through Redis.
func ProvideSharedCache(cfg *config.Config, rc *redis.Client) icache.BytesCache {
	if rc == nil {
		return nil
	}
	return icache.NewRedisCache(rc, cfg.Redis.CachePrefix)
}

// ProvideMarketData creates the Alpha Vantage client.
func ProvideMarketData(cfg *config.Config, shared icache.BytesCache, l *applogger.Logger) domsvc.MarketData {
	opts := []alphavantage.Option{alphavantage.WithLogger(l)}
	if shared != nil {
		opts = append(opts, alphavantage.WithSharedCache(shared))
	}
	return alphavantage.New(cfg, opts...)
}

func ProvideScorer(cfg *config.Config) domsvc.IndicatorScorer {
	return analytics.NewHTTPIndicatorScorer(cfg)
}

func ProvideRecapGenerator(cfg *config.Config) domsvc.RecapGenerator {
	return analytics.NewHTTPRecapGenerator(cfg)
}

// ProvideSession creates the session with whichever backends are configured.
func ProvideSession(
	cfg *config.Config,
	states repository.StateRepository,
	history repository.HistoryRepository,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Session {
	opts := []usecase.SessionOption{usecase.WithMetrics(m), usecase.WithLogger(l)}
	if states != nil {
		opts = append(opts, usecase.WithStateRepository(states))
	}
	if history != nil {
		opts = append(opts, usecase.WithHistoryRepository(history))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewSession(cfg, opts...)
}

func ProvideAnalysisUseCase(session *usecase.Session, scorer domsvc.IndicatorScorer, recaps domsvc.RecapGenerator, cfg *config.Config, l *applogger.Logger) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(session, scorer, recaps, cfg, l)
}

func ProvideRiskSentimentUseCase(session *usecase.Session, market domsvc.MarketData, cfg *config.Config, l *applogger.Logger) *usecase.RiskSentimentUseCase {
	return usecase.NewRiskSentimentUseCase(session, market, cfg, l)
}

func ProvideBiasHandler(l *applogger.Logger, session *usecase.Session, analysis *usecase.AnalysisUseCase, risk *usecase.RiskSentimentUseCase) *api.BiasEchoHandler {
	return api.NewBiasEchoHandler(l, session, analysis, risk)
}

func ProvideStreamHandler(l *applogger.Logger, session *usecase.Session) *api.StreamHandler {
	return api.NewStreamHandler(l, session)
}

// ProvideHTTPServer builds the Echo server with every API handler.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, bias *api.BiasEchoHandler, stream *api.StreamHandler) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{bias, stream},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(config.Enabled(cfg.Server.CORS)),
		xhttp.WithMetrics(config.Enabled(cfg.Metrics.Enabled), cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	session *usecase.Session,
	httpServer *xhttp.Server,
	stream *api.StreamHandler,
	rc *redis.Client,
	ch *pkgch.Client,
	pub repository.Publisher,
) *server.App {
	app := server.New(cfg, l, session, httpServer)
	// close order: stop pushing, flush messages, then the stores
	app.AddCloser("stream", stream)
	if pub != nil {
		app.AddCloser("kafka", pub)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	if rc != nil {
		app.AddCloser("redis", rc)
	}
	return app
}
