// Package app wires the store, fetchers, engine and scheduler from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mr1hm/hazard-monitor/internal/alerting"
	"github.com/mr1hm/hazard-monitor/internal/config"
	"github.com/mr1hm/hazard-monitor/internal/engine"
	"github.com/mr1hm/hazard-monitor/internal/ingestion"
	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/notify"
	"github.com/mr1hm/hazard-monitor/internal/observability"
	"github.com/mr1hm/hazard-monitor/internal/repository"
	"github.com/mr1hm/hazard-monitor/internal/rules"
	"github.com/mr1hm/hazard-monitor/internal/scheduler"
	"github.com/mr1hm/hazard-monitor/internal/stream"
)

type App struct {
	Config      *config.Config
	DB          *repository.SQLiteDB
	Engine      *engine.Engine
	Broadcaster *stream.Broadcaster
	Scheduler   *scheduler.Scheduler
	Metrics     *observability.Metrics

	kafka *notify.KafkaPublisher
}

// New opens the store and builds every component. reg receives the metrics.
func New(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if err := ensureDir(cfg.DB.Path); err != nil {
		return nil, err
	}
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics(reg)
	broadcaster := stream.NewBroadcaster()
	metrics.RegisterStream(broadcaster)

	notifiers := notify.Multi{broadcaster}
	var kafka *notify.KafkaPublisher
	if cfg.Kafka.Enabled() {
		kafka = notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic, logger)
		notifiers = append(notifiers, kafka)
		logger.Info("publishing alert events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.AlertTopic)
	}

	eng := engine.New(engine.Deps{
		Store:     db,
		Weather:   ingestion.NewOpenMeteoClient(cfg.Sources.WeatherURL, cfg.Sources.AirQualityURL, cfg.Sources.FetchTimeout, clock, logger),
		Quakes:    ingestion.NewUSGSClient(cfg.Sources.USGSURL, cfg.Sources.FetchTimeout, logger),
		Evaluator: rules.NewEvaluator(db),
		Alerts:    alerting.NewManager(db, notifiers, clock, cfg.Engine.QuakeAlertTTL, logger),
		Feed:      engine.NewFeedCache(),
		Clock:     clock,
		Metrics:   metrics,
		Logger:    logger,
	}, engine.Options{
		QuakeRadiusKm:      cfg.Engine.QuakeRadiusKm,
		FeedCacheMaxAge:    cfg.Engine.FeedCacheMaxAge,
		ReadingDedupWindow: cfg.Engine.ReadingDedupWindow,
		FetchWorkers:       cfg.Engine.FetchWorkers,
	})

	sched := scheduler.New(db, cfg.Scheduler.IntervalFloor, clock, metrics, logger,
		scheduler.Loop{
			Name:       engine.LoopSeismic,
			SettingKey: models.SettingSeismicPollInterval,
			Default:    cfg.Scheduler.SeismicInterval,
			Run: func(ctx context.Context) error {
				_, err := eng.RunPointEventCycle(ctx)
				return err
			},
		},
		scheduler.Loop{
			Name:       engine.LoopWeather,
			SettingKey: models.SettingWeatherPollInterval,
			Default:    cfg.Scheduler.WeatherInterval,
			Run: func(ctx context.Context) error {
				_, err := eng.RunContinuousSignalCycle(ctx)
				return err
			},
		},
	)

	return &App{
		Config:      cfg,
		DB:          db,
		Engine:      eng,
		Broadcaster: broadcaster,
		Scheduler:   sched,
		Metrics:     metrics,
		kafka:       kafka,
	}, nil
}

// Close releases the broadcaster, the Kafka writer and the store. Stop the
// scheduler first.
func (a *App) Close() error {
	a.Broadcaster.Close()

	var errs []error
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka writer: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func ensureDir(dbPath string) error {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory %s: %w", dir, err)
	}
	return nil
}
