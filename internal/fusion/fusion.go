// Package fusion turns each published feed snapshot into the two broadcast
// payloads: the compact vehicle list and the active stop id list.
package fusion

import (
	"log/slog"
	"sync"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/hub"
	"zetlive.dev/internal/logging"
	"zetlive.dev/internal/wire"
)

// Engine watches the feed cache and republishes derived frames into the hub.
// Derivations for one snapshot run as two independent tasks; a slow or failed
// one never delays the other.
type Engine struct {
	logger   *slog.Logger
	schedule *gtfs.ScheduleStore
	feed     *gtfs.FeedStore
	hub      *hub.Hub

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New wires an engine to its stores and hub. Call Start to begin deriving.
func New(logger *slog.Logger, schedule *gtfs.ScheduleStore, feed *gtfs.FeedStore, h *hub.Hub) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:       logger,
		schedule:     schedule,
		feed:         feed,
		hub:          h,
		shutdownChan: make(chan struct{}),
	}
}

// Start launches the derivation loop. A feed that is already cached is
// derived immediately, without waiting for the next publication.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Shutdown stops the loop and waits for it to exit. Safe to call more than
// once.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		close(e.shutdownChan)
	})
	e.wg.Wait()
}

func (e *Engine) run() {
	defer e.wg.Done()

	logger := logging.WithComponent(e.logger, "fusion")

	var last *gtfs.FeedSnapshot
	for {
		ch := e.feed.Changed()
		if snapshot, ok := e.feed.Get(); ok && snapshot != last {
			last = snapshot
			e.derive(logger, snapshot)
		}
		select {
		case <-ch:
		case <-e.shutdownChan:
			logging.LogOperation(logger, "shutting_down_fusion")
			return
		}
	}
}

// derive runs both tasks against the one snapshot handle captured for this
// trigger. Publications that race a snapshot swap still describe a consistent
// feed.
func (e *Engine) derive(logger *slog.Logger, snapshot *gtfs.FeedSnapshot) {
	var tasks sync.WaitGroup
	tasks.Add(2)
	go func() {
		defer tasks.Done()
		e.publishVehicles(logger, snapshot)
	}()
	go func() {
		defer tasks.Done()
		e.publishActiveStops(logger, snapshot)
	}()
	tasks.Wait()
}

func (e *Engine) publishVehicles(logger *slog.Logger, snapshot *gtfs.FeedSnapshot) {
	vehicles := snapshot.Vehicles()
	tuples := make([]wire.Vehicle, len(vehicles))
	for i, v := range vehicles {
		tuples[i] = wire.Vehicle{ID: v.ID, RouteID: v.RouteID, TripID: v.TripID, Lat: v.Lat, Lon: v.Lon}
	}

	frame, err := wire.MarshalCBOR(wire.NewVersioned(snapshot.Timestamp, wire.Vehicles(tuples)))
	if err != nil {
		logging.LogError(logger, "Error encoding vehicles broadcast", err)
		return
	}

	e.hub.Publish(wire.KindVehicles, frame)
	logger.Debug("published vehicles broadcast",
		slog.Int("vehicles", len(tuples)),
		slog.Int64("timestamp", snapshot.Timestamp))
}

func (e *Engine) publishActiveStops(logger *slog.Logger, snapshot *gtfs.FeedSnapshot) {
	// Without a schedule there is nothing to intersect against; an empty
	// list is still broadcast so subscribers can clear stale highlights.
	active := []string{}
	if schedule, ok := e.schedule.Get(); ok {
		active = schedule.ActiveStopIDs(snapshot.LiveTripIDs())
	}

	frame, err := wire.MarshalCBOR(wire.NewVersioned(snapshot.Timestamp, wire.ActiveStops(active)))
	if err != nil {
		logging.LogError(logger, "Error encoding active stops broadcast", err)
		return
	}

	e.hub.Publish(wire.KindActiveStops, frame)
	logger.Debug("published active stops broadcast",
		slog.Int("stops", len(active)),
		slog.Int64("timestamp", snapshot.Timestamp))
}
