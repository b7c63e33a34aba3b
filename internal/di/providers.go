package di

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"DeclCast/internal/domain/models"
	"DeclCast/internal/domain/repository"
	"DeclCast/internal/domain/service"
	"DeclCast/internal/handler/api"
	internalrepo "DeclCast/internal/repository"
	apimetrics "DeclCast/internal/service/metrics"
	"DeclCast/internal/service/ratelimit"
	"DeclCast/internal/services/evaluation"
	"DeclCast/internal/services/features"
	"DeclCast/internal/services/forecasting"
	"DeclCast/internal/usecase"
	"DeclCast/pkg/cache"
	pkgch "DeclCast/pkg/clickhouse"
	"DeclCast/pkg/config"
	xhttp "DeclCast/pkg/http"
	pkgkafka "DeclCast/pkg/kafka"
	applogger "DeclCast/pkg/logger"
	"DeclCast/pkg/metrics"
	"DeclCast/pkg/server"
)

// Runtime bundles the use case with the resources it holds open.
type Runtime struct {
	Logger  *applogger.Logger
	UseCase *usecase.ForecastingUseCase
	closers []io.Closer
}

// Close releases the stores and the event publisher.
func (r *Runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

var (
	recorderOnce sync.Once
	recorder     *metrics.Recorder
)

// ProvideMetrics returns the process-wide Prometheus recorder. Collectors live
// on the default registry, so they are created once.
func ProvideMetrics() repository.Metrics {
	recorderOnce.Do(func() {
		apimetrics.Register(prometheus.DefaultRegisterer)
		recorder = metrics.New(prometheus.DefaultRegisterer)
	})
	return recorder
}

// ProvideModelFactory maps the models section onto forecasting settings.
func ProvideModelFactory(cfg *config.Config) *forecasting.Factory {
	m := cfg.Models
	return forecasting.NewFactory(forecasting.WithSettings(forecasting.Settings{
		ARMaxLag:              m.ARMaxLag,
		ETSSeasonPeriod:       m.ETSPeriod,
		ForestTrees:           m.Forest.Trees,
		ForestSeed:            m.Forest.Seed,
		BoostIterations:       m.Boosting.Iterations,
		BoostLearningRate:     m.Boosting.LearningRate,
		BoostMaxLeaves:        m.Boosting.MaxLeaves,
		BoostMinLeaf:          m.Boosting.MinLeaf,
		BoostSeed:             m.Boosting.Seed,
		RecurrentInputSize:    m.Recurrent.InputSize,
		RecurrentHidden:       m.Recurrent.Hidden,
		RecurrentSteps:        m.Recurrent.Steps,
		RecurrentBatch:        m.Recurrent.Batch,
		RecurrentLearningRate: m.Recurrent.LearningRate,
		RecurrentSeed:         m.Recurrent.Seed,
	}))
}

// ProvideBlobStore selects the model blob backend.
func ProvideBlobStore(cfg *config.Config) (repository.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis model store: %w", err)
		}
		return internalrepo.NewCacheBlobStore(rc, cfg.Storage.LockTTL), nil
	case "memory":
		return internalrepo.NewCacheBlobStore(cache.NewMemoryCache(), cfg.Storage.LockTTL), nil
	default:
		fs, err := internalrepo.NewFileBlobStore(cfg.Storage.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("file model store: %w", err)
		}
		return fs, nil
	}
}

// ProvideModelStore wraps the blob backend with the model envelope codec.
func ProvideModelStore(blobs repository.BlobStore, factory *forecasting.Factory, l *applogger.Logger) repository.ModelStore {
	s := internalrepo.NewBlobModelStore(blobs, factory)
	s.SetLogger(l)
	return s
}

// ProvideEvaluationLog selects the evaluation log backend.
func ProvideEvaluationLog(cfg *config.Config, l *applogger.Logger) (repository.EvaluationLog, error) {
	if cfg.Evaluation.Backend != "clickhouse" {
		log, err := internalrepo.NewCSVEvaluationLog(cfg.Evaluation.DataDir)
		if err != nil {
			return nil, fmt.Errorf("csv evaluation log: %w", err)
		}
		return log, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.EvaluationSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log := internalrepo.NewCHEvaluationLog(client)
	log.SetLogger(l)
	return log, nil
}

// ProvideEventPublisher returns a Kafka publisher, or a no-op one when kafka
// is disabled.
func ProvideEventPublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(producerOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer), nil
}

func producerOptions(cfg *config.Config) []pkgkafka.ProducerOption {
	return []pkgkafka.ProducerOption{
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreateTopic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	}
}

func ProvideFeatureBuilder() service.FeatureBuilder { return features.NewBuilder() }

func ProvideHorizonBuilder() service.HorizonBuilder { return features.NewHorizon() }

func ProvideEvaluator() service.Evaluator { return evaluation.NewEvaluator() }

// ProvideForecastingUseCase creates the forecasting use case.
func ProvideForecastingUseCase(
	cfg *config.Config,
	l *applogger.Logger,
	fb service.FeatureBuilder,
	hb service.HorizonBuilder,
	factory *forecasting.Factory,
	store repository.ModelStore,
	ev service.Evaluator,
	evalLog repository.EvaluationLog,
	events repository.EventPublisher,
	m repository.Metrics,
) *usecase.ForecastingUseCase {
	return usecase.NewForecastingUseCase(fb, hb, factory, store, ev, evalLog,
		usecase.WithLogger(l),
		usecase.WithMetrics(m),
		usecase.WithEvents(events),
		usecase.WithDefaults(cfg.Models.DefaultHorizon, cfg.Evaluation.TestSize),
		usecase.WithDefaultModel(models.ModelType(cfg.Models.DefaultType)),
	)
}

// ProvideRuntime collects the use case and the resources it keeps open.
func ProvideRuntime(
	l *applogger.Logger,
	uc *usecase.ForecastingUseCase,
	blobs repository.BlobStore,
	evalLog repository.EvaluationLog,
	events repository.EventPublisher,
) *Runtime {
	return &Runtime{Logger: l, UseCase: uc, closers: []io.Closer{blobs, evalLog, events}}
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TTL)
}

// ProvideForecastHandler creates the echo handler for the forecasting routes.
func ProvideForecastHandler(rt *Runtime, lim *ratelimit.Limiter) *api.ForecastEchoHandler {
	return api.NewForecastEchoHandler(rt.Logger, rt.UseCase, lim)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, rt *Runtime, h *api.ForecastEchoHandler) *server.App {
	return server.New(cfg, rt.Logger, []xhttp.Handler{h}, rt)
}
