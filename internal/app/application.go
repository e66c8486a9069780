// Package app carries the assembled application: configuration, shared
// infrastructure and the domain components wired together at startup. There
// are no mutable globals; everything reads its collaborators from here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zetlive.dev/internal/appconf"
	"zetlive.dev/internal/clock"
	"zetlive.dev/internal/fusion"
	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/hub"
	"zetlive.dev/internal/metrics"
	"zetlive.dev/scheduledb"
)

// Application holds the dependencies for the HTTP handlers, the fetch loops
// and the fusion engine. Built once in cmd/api and passed by pointer.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   clock.Clock

	Schedule *gtfs.ScheduleStore
	Feed     *gtfs.FeedStore
	Hub      *hub.Hub
	Manager  *gtfs.Manager
	Engine   *fusion.Engine

	// ScheduleCache is nil unless a warm-start cache path is configured.
	ScheduleCache *scheduledb.Store

	// StartedAt is when the process came up; the health endpoint reports
	// uptime relative to it.
	StartedAt time.Time
}

// Uptime reports how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return a.Clock.Now().Sub(a.StartedAt)
}

// WaitReady blocks until both stores have published at least once, so the
// listener never comes up with nothing to serve. Warm-start cache publication
// or the first successful fetch of each feed satisfies it, whichever lands
// first.
func (a *Application) WaitReady(ctx context.Context) error {
	if _, err := a.Schedule.AwaitSet(ctx); err != nil {
		return fmt.Errorf("waiting for first schedule: %w", err)
	}
	if _, err := a.Feed.AwaitSet(ctx); err != nil {
		return fmt.Errorf("waiting for first realtime feed: %w", err)
	}
	return nil
}

// Shutdown stops the background components in dependency order: fetch loops
// first so no new snapshots land, then the fusion engine, then the hub so
// websocket subscribers drain, then metrics and the cache.
func (a *Application) Shutdown() {
	if a.Manager != nil {
		a.Manager.Shutdown()
	}
	if a.Engine != nil {
		a.Engine.Shutdown()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Metrics != nil {
		a.Metrics.Shutdown()
	}
	if a.ScheduleCache != nil {
		if err := a.ScheduleCache.Close(); err != nil {
			a.Logger.Warn("error closing schedule cache", "error", err)
		}
	}
}
