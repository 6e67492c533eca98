package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/labelbridge/internal/config"
	"github.com/tournevent/labelbridge/internal/events"
	"github.com/tournevent/labelbridge/internal/processor"
	"github.com/tournevent/labelbridge/internal/store"
	"github.com/tournevent/labelbridge/internal/telemetry"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/gateway"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel,
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.Version),
	)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

func initMetrics(reg prometheus.Registerer) *telemetry.Metrics {
	return telemetry.NewMetrics(reg)
}

func initTrackStore(cfg *config.Config, logger *otelzap.Logger) (store.TrackStore, error) {
	if cfg.MySQLDSN == "" {
		logger.Warn("MYSQL_DSN not set, tracks are kept in memory")
		return store.NewMemoryStore(), nil
	}
	return store.NewMySQLStore(cfg.MySQLDSN)
}

func initPublisher(cfg *config.Config, logger *otelzap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger)
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaStatusTopic, logger)
}

// app holds the wired label pipeline and its closable resources.
type app struct {
	stores     *config.Stores
	management *gateway.Management
	tracks     store.TrackStore
	publisher  events.Publisher
}

func (a *app) Close() error {
	return errors.Join(a.publisher.Close(), a.tracks.Close())
}

func initApp(cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) (*app, error) {
	stores, err := config.LoadStores(cfg.StoreConfigPath)
	if err != nil {
		return nil, err
	}

	tracks, err := initTrackStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher := initPublisher(cfg, logger)

	trackProcessor := processor.NewTracks(tracks)
	eventProcessor := processor.NewEvents(publisher)

	tracer := otel.Tracer(cfg.ServiceName)
	factory := carrier.NewClientFactory(cfg.CarrierTimeout, logger, tracer)

	opts := gateway.Options{
		EUCountries:      cfg.EUCountries,
		Timeout:          cfg.CarrierTimeout,
		CancelRetries:    cfg.CancelRetries,
		RetryDelay:       cfg.CancelRetryDelay,
		CreateProcessors: []gateway.CreateProcessor{trackProcessor, eventProcessor},
		CancelProcessors: []gateway.CancelProcessor{trackProcessor, eventProcessor},
		Logger:           logger,
		Metrics:          metrics,
	}
	cache := gateway.NewCache(gateway.NewBuildFunc(stores, factory, opts))

	logger.Info("Label pipeline ready",
		zap.Bool("dispatch_parallel", cfg.DispatchParallel),
		zap.Bool("mysql", cfg.MySQLDSN != ""),
		zap.Bool("kafka", len(cfg.KafkaBrokers) > 0),
	)

	return &app{
		stores:     stores,
		management: gateway.NewManagement(cache, cfg.DispatchParallel, logger),
		tracks:     tracks,
		publisher:  publisher,
	}, nil
}
