package scheduledb

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/logging"
)

// LoadSchedule reads the cached snapshot and the remembered conditional pair.
// An initialized but never written cache returns a nil snapshot and no error.
// The joined trip and stop lists are rebuilt from trip_stops in the same
// order the parser produces them.
func (s *Store) LoadSchedule() (*gtfs.ScheduleSnapshot, time.Time, string, error) {
	ctx := context.Background()
	start := time.Now()

	meta, err := s.readMeta(ctx)
	if err != nil {
		return nil, time.Time{}, "", fmt.Errorf("reading cache meta: %w", err)
	}
	createdRaw, ok := meta[metaCreatedAt]
	if !ok {
		return nil, time.Time{}, "", nil
	}
	createdUnix, err := strconv.ParseInt(createdRaw, 10, 64)
	if err != nil {
		return nil, time.Time{}, "", fmt.Errorf("corrupt cache meta %s=%q: %w", metaCreatedAt, createdRaw, err)
	}

	routes, err := s.readRoutes(ctx)
	if err != nil {
		return nil, time.Time{}, "", err
	}
	stops, err := s.readStops(ctx)
	if err != nil {
		return nil, time.Time{}, "", err
	}
	trips, err := s.readTrips(ctx)
	if err != nil {
		return nil, time.Time{}, "", err
	}
	if err := s.joinTripStops(ctx, trips, stops); err != nil {
		return nil, time.Time{}, "", err
	}
	shapes, err := s.readShapes(ctx)
	if err != nil {
		return nil, time.Time{}, "", err
	}

	var modified time.Time
	if raw, ok := meta[metaLastModified]; ok {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, time.Time{}, "", fmt.Errorf("corrupt cache meta %s=%q: %w", metaLastModified, raw, err)
		}
		modified = time.Unix(unix, 0).UTC()
	}

	snapshot := gtfs.NewScheduleSnapshot(routes, stops, trips, shapes, time.Unix(createdUnix, 0).UTC())

	logging.LogOperation(s.logger, "schedule_cache_loaded",
		slog.Int("routes", len(routes)),
		slog.Int("stops", len(stops)),
		slog.Int("trips", len(trips)),
		slog.Int("shapes", len(shapes)),
		slog.Duration("duration", time.Since(start)))

	return snapshot, modified, meta[metaETag], nil
}

func (s *Store) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	meta := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

func (s *Store) readRoutes(ctx context.Context) (map[string]*gtfs.Route, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, short_name, long_name, type, color, text_color FROM routes")
	if err != nil {
		return nil, fmt.Errorf("reading cached routes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	routes := map[string]*gtfs.Route{}
	for rows.Next() {
		var r gtfs.Route
		if err := rows.Scan(&r.ID, &r.ShortName, &r.LongName, &r.Type, &r.Color, &r.TextColor); err != nil {
			return nil, err
		}
		routes[r.ID] = &r
	}
	return routes, rows.Err()
}

func (s *Store) readStops(ctx context.Context) (map[string]*gtfs.Stop, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, lat, lon, parent_station, location_type, wheelchair_boarding FROM stops")
	if err != nil {
		return nil, fmt.Errorf("reading cached stops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stops := map[string]*gtfs.Stop{}
	for rows.Next() {
		st := gtfs.Stop{TripIDs: []string{}}
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.ParentStation, &st.LocationType, &st.WheelchairBoarding); err != nil {
			return nil, err
		}
		stops[st.ID] = &st
	}
	return stops, rows.Err()
}

func (s *Store) readTrips(ctx context.Context) (map[string]*gtfs.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, route_id, service_id, headsign, direction_id, shape_id FROM trips")
	if err != nil {
		return nil, fmt.Errorf("reading cached trips: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trips := map[string]*gtfs.Trip{}
	for rows.Next() {
		t := gtfs.Trip{StopIDs: []string{}}
		if err := rows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.DirectionID, &t.ShapeID); err != nil {
			return nil, err
		}
		trips[t.ID] = &t
	}
	return trips, rows.Err()
}

// joinTripStops replays the stop sequence of every trip into Trip.StopIDs
// and the inverse visit lists into Stop.TripIDs.
func (s *Store) joinTripStops(ctx context.Context, trips map[string]*gtfs.Trip, stops map[string]*gtfs.Stop) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT trip_id, stop_id FROM trip_stops ORDER BY trip_id, seq")
	if err != nil {
		return fmt.Errorf("reading cached trip stops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tripID, stopID string
		if err := rows.Scan(&tripID, &stopID); err != nil {
			return err
		}
		trip, tripOK := trips[tripID]
		stop, stopOK := stops[stopID]
		if !tripOK || !stopOK {
			continue
		}
		trip.StopIDs = append(trip.StopIDs, stop.ID)
		if n := len(stop.TripIDs); n == 0 || stop.TripIDs[n-1] != trip.ID {
			stop.TripIDs = append(stop.TripIDs, trip.ID)
		}
	}
	return rows.Err()
}

func (s *Store) readShapes(ctx context.Context) (map[string][]gtfs.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT shape_id, lat, lon FROM shapes ORDER BY shape_id, seq")
	if err != nil {
		return nil, fmt.Errorf("reading cached shapes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	shapes := map[string][]gtfs.Point{}
	for rows.Next() {
		var id string
		var p gtfs.Point
		if err := rows.Scan(&id, &p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		shapes[id] = append(shapes[id], p)
	}
	return shapes, rows.Err()
}
