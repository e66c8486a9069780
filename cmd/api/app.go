package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"zetlive.dev/internal/app"
	"zetlive.dev/internal/appconf"
	"zetlive.dev/internal/clock"
	"zetlive.dev/internal/fusion"
	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/hub"
	"zetlive.dev/internal/logging"
	"zetlive.dev/internal/metrics"
	"zetlive.dev/internal/restapi"
	"zetlive.dev/internal/webui"
	"zetlive.dev/scheduledb"
)

// dbStatsInterval is how often cache pool statistics are sampled.
const dbStatsInterval = 15 * time.Second

// buildLogger parses the level directives and picks the output format:
// JSON in production, text everywhere else. Malformed directives are
// reported and skipped rather than failing startup.
func buildLogger(cfg appconf.Config) *slog.Logger {
	dirs, errs := logging.ParseDirectives(cfg.LogLevel, logging.DefaultDirectives())
	logger := logging.NewLogger(os.Stdout, cfg.Env == appconf.Production, dirs)
	for _, err := range errs {
		logger.Warn("ignoring malformed log directive", "error", err)
	}
	return logger
}

// BuildApplication assembles the dependency graph from configuration. When a
// schedule cache is configured and readable, its snapshot is published before
// returning, so the listener can come up without waiting for the first
// upstream fetch.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	logger := buildLogger(cfg)

	m := metrics.New()
	clk := clock.RealClock{}
	scheduleStore := gtfs.NewScheduleStore()
	feedStore := gtfs.NewFeedStore()
	broadcastHub := hub.New(logger, m)

	managerCfg := gtfs.Config{
		DataFetchEndpoint:     cfg.DataFetchEndpoint,
		DataFetchInterval:     time.Duration(cfg.DataFetchInterval),
		ScheduleFetchEndpoint: cfg.ScheduleFetchEndpoint,
		ScheduleFetchInterval: time.Duration(cfg.ScheduleFetchInterval),
		Logger:                logger,
		Metrics:               m,
		Clock:                 clk,
	}

	var cache *scheduledb.Store
	var warmModified time.Time
	var warmETag string
	if cfg.ScheduleCachePath != "" {
		store, err := scheduledb.Open(cfg.ScheduleCachePath, logger)
		switch {
		case errors.Is(err, scheduledb.ErrBadDirectory):
			return nil, fmt.Errorf("schedule cache: %w", err)
		case err != nil:
			logger.Warn("schedule cache unusable, continuing without it", "error", err)
		default:
			cache = store
			managerCfg.Persister = store
			m.StartDBStatsCollector(store.DB(), dbStatsInterval)

			snapshot, modified, etag, err := store.LoadSchedule()
			if err != nil {
				logger.Warn("schedule cache unreadable, skipping warm start", "error", err)
			} else if snapshot != nil {
				scheduleStore.Set(snapshot)
				warmModified, warmETag = modified, etag
				logging.LogOperation(logger, "published_cached_schedule",
					slog.Time("created_at", snapshot.CreatedAt))
			}
		}
	}

	manager := gtfs.NewManager(managerCfg, scheduleStore, feedStore)
	if !warmModified.IsZero() || warmETag != "" {
		manager.SeedConditional(warmModified, warmETag)
	}

	return &app.Application{
		Config:        cfg,
		Logger:        logger,
		Metrics:       m,
		Clock:         clk,
		Schedule:      scheduleStore,
		Feed:          feedStore,
		Hub:           broadcastHub,
		Manager:       manager,
		Engine:        fusion.New(logger, scheduleStore, feedStore, broadcastHub),
		ScheduleCache: cache,
		StartedAt:     clk.Now(),
	}, nil
}

// CreateServer builds the HTTP server: the API surface with the web UI
// mounted as its fallback.
func CreateServer(application *app.Application) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(application)
	handler := api.Routes(webui.NewWebUI(application).Handler())

	srv := &http.Server{
		Addr:         application.Config.Addr(),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(application.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}
