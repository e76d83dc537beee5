// Package app assembles the service components from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/allocine"
	"github.com/Clark-Hu/cine-map/internal/catalog"
	"github.com/Clark-Hu/cine-map/internal/config"
	"github.com/Clark-Hu/cine-map/internal/integration"
	"github.com/Clark-Hu/cine-map/internal/jobs"
	"github.com/Clark-Hu/cine-map/internal/maps"
	"github.com/Clark-Hu/cine-map/internal/repository"
	"github.com/Clark-Hu/cine-map/internal/store"
)

// App holds the wired components shared by the binaries.
type App struct {
	Store    *store.Store
	Repo     *repository.Repository
	Catalog  *catalog.HTTPClient
	Scraper  *allocine.HTTPScraper
	Pipeline *integration.Pipeline
	Maps     *maps.Service
	Worker   *jobs.Worker
	Logger   logrus.FieldLogger
}

// NewLogger returns a JSON logger, or a text logger in development.
func NewLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.IsDev() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("app: unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// OpenStore connects to Postgres and applies migrations when migrate is set.
func OpenStore(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, migrate bool) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if !migrate {
		return st, nil
	}

	applied, err := st.Migrate(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.WithField("applied", applied).Info("app: migrations up to date")
	return st, nil
}

// Build wires clients, repositories, the integration pipeline, the map
// service and the enrichment worker on top of st.
func Build(cfg config.Config, st *store.Store, logger logrus.FieldLogger) (*App, error) {
	catalogClient, err := catalog.NewHTTPClient(catalog.Options{
		BaseURL:      cfg.TmdbURL,
		AccessToken:  cfg.TmdbAccessToken,
		Language:     cfg.TmdbLanguage,
		ImageBaseURL: cfg.ImageBaseURL,
		Timeout:      time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
		BatchSize:    cfg.CatalogBatchSize,
		BatchDelay:   time.Duration(cfg.CatalogBatchDelayMS) * time.Millisecond,
		RateLimit:    cfg.CatalogRateLimit,
		Logger:       logger.WithField("component", "catalog"),
	})
	if err != nil {
		return nil, fmt.Errorf("init catalog client: %w", err)
	}

	scraper, err := allocine.NewHTTPScraper(cfg.AllocineURL, time.Duration(cfg.AllocineTimeoutSecs)*time.Second, logger.WithField("component", "allocine"))
	if err != nil {
		return nil, fmt.Errorf("init allocine scraper: %w", err)
	}

	repo := repository.New(st)
	pipeline := integration.New(integration.Deps{
		Catalog: catalogClient,
		Scraper: scraper,
		Movies:  repo.Movies,
		Persons: repo.Persons,
		Credits: repo.Credits,
		Ratings: repo.Ratings,
		Queue:   repo.Jobs,
		Logger:  logger.WithField("component", "integration"),
	})

	worker := jobs.NewWorker(repo.Jobs, jobs.Options{
		Concurrency:  cfg.JobWorkers,
		PollInterval: time.Duration(cfg.JobPollIntervalMS) * time.Millisecond,
		MaxAttempts:  cfg.JobMaxAttempts,
		JobTimeout:   time.Duration(cfg.JobTimeoutSecs) * time.Second,
		Logger:       logger.WithField("component", "jobs"),
	})
	pipeline.Register(worker)

	rules := maps.Rules{
		MinTitleLength:       cfg.MapMinTitleLength,
		MinDescriptionLength: cfg.MapMinDescriptionLength,
		MinMovies:            cfg.MapMinMovies,
	}

	return &App{
		Store:    st,
		Repo:     repo,
		Catalog:  catalogClient,
		Scraper:  scraper,
		Pipeline: pipeline,
		Maps:     maps.NewService(repo, pipeline, rules, logger.WithField("component", "maps")),
		Worker:   worker,
		Logger:   logger,
	}, nil
}
