package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffqa/internal/app"
	"staffqa/internal/config"
	"staffqa/internal/events"
	"staffqa/internal/metrics"
	"staffqa/internal/model"
	databaseClient "staffqa/internal/platform/database"
	rabbitmqClient "staffqa/internal/platform/rabbitmq"
	redisClient "staffqa/internal/platform/redis"
	"staffqa/internal/storage"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	// MQConn and Events are nil when no broker is configured.
	MQConn   *amqp.Connection
	Events   app.EventPublisher
	Store    storage.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}

	db, err := databaseClient.New(ctx, cfg.Database.URL, databaseClient.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := db.AutoMigrate(model.All()...); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Redis = redisCli

	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventsQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = mqConn
		a.Events = events.NewRabbitPublisher(mqConn, cfg.RabbitMQ.EventsQueue)
	} else {
		logger.Info("rabbitmq not configured, domain events disabled")
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	logger.Info("dependencies ready",
		zap.Bool("postgres", databaseClient.IsPostgres(cfg.Database.URL)),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("events", a.Events != nil),
	)
	return a, nil
}

func newStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
	default:
		return storage.NewLocalStore(cfg.UploadDir)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis failed: %w", err))
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq failed: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database failed: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
