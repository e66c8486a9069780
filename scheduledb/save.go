package scheduledb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/logging"
)

// insertBatchRows keeps multi-row inserts under SQLite's default variable
// limit for the widest table.
const insertBatchRows = 200

// SaveSchedule writes the snapshot and its conditional pair through to the
// cache, replacing whatever was there, in a single transaction. The cache is
// compacted once, after the first import into an empty file.
func (s *Store) SaveSchedule(snapshot *gtfs.ScheduleSnapshot, modified time.Time, etag string) error {
	ctx := context.Background()
	start := time.Now()

	wasEmpty, err := s.isEmpty(ctx)
	if err != nil {
		return fmt.Errorf("checking cache state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, s.logger, "save_schedule")

	for _, table := range []string{"trip_stops", "shapes", "trips", "stops", "routes", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	if err := insertRoutes(ctx, tx, snapshot.Routes); err != nil {
		return err
	}
	if err := insertStops(ctx, tx, snapshot.Stops); err != nil {
		return err
	}
	if err := insertTrips(ctx, tx, snapshot.Trips); err != nil {
		return err
	}
	if err := insertTripStops(ctx, tx, snapshot.Trips); err != nil {
		return err
	}
	if err := insertShapes(ctx, tx, snapshot.Shapes); err != nil {
		return err
	}
	if err := writeMeta(ctx, tx, snapshot.CreatedAt, modified, etag); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if wasEmpty {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			logging.LogError(s.logger, "Error compacting schedule cache", err)
		}
	}

	logging.LogOperation(s.logger, "schedule_cache_saved",
		slog.Int("routes", len(snapshot.Routes)),
		slog.Int("stops", len(snapshot.Stops)),
		slog.Int("trips", len(snapshot.Trips)),
		slog.Int("shapes", len(snapshot.Shapes)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

func (s *Store) isEmpty(ctx context.Context) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM routes LIMIT 1").Scan(&one)
	if err == sql.ErrNoRows {
		return true, nil
	}
	return false, err
}

func insertRoutes(ctx context.Context, tx *sql.Tx, routes map[string]*gtfs.Route) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO routes (id, short_name, long_name, type, color, text_color) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range routes {
		if _, err := stmt.ExecContext(ctx, r.ID, r.ShortName, r.LongName, r.Type, r.Color, r.TextColor); err != nil {
			return fmt.Errorf("unable to insert route %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertStops(ctx context.Context, tx *sql.Tx, stops map[string]*gtfs.Stop) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO stops (id, name, lat, lon, parent_station, location_type, wheelchair_boarding) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, st := range stops {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.Lat, st.Lon, st.ParentStation, st.LocationType, st.WheelchairBoarding); err != nil {
			return fmt.Errorf("unable to insert stop %s: %w", st.ID, err)
		}
	}
	return nil
}

func insertTrips(ctx context.Context, tx *sql.Tx, trips map[string]*gtfs.Trip) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO trips (id, route_id, service_id, headsign, direction_id, shape_id) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range trips {
		if _, err := stmt.ExecContext(ctx, t.ID, t.RouteID, t.ServiceID, t.Headsign, t.DirectionID, t.ShapeID); err != nil {
			return fmt.Errorf("unable to insert trip %s: %w", t.ID, err)
		}
	}
	return nil
}

type tripStopRow struct {
	tripID string
	seq    int
	stopID string
}

func insertTripStops(ctx context.Context, tx *sql.Tx, trips map[string]*gtfs.Trip) error {
	var rows []tripStopRow
	for _, t := range trips {
		for seq, stopID := range t.StopIDs {
			rows = append(rows, tripStopRow{tripID: t.ID, seq: seq, stopID: stopID})
		}
	}

	const baseQuery = "INSERT INTO trip_stops (trip_id, seq, stop_id) VALUES "
	for start := 0; start < len(rows); start += insertBatchRows {
		end := start + insertBatchRows
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var query strings.Builder
		query.WriteString(baseQuery)
		args := make([]any, 0, len(batch)*3)
		for i, row := range batch {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString("(?, ?, ?)")
			args = append(args, row.tripID, row.seq, row.stopID)
		}

		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("failed to insert trip_stops batch: %w", err)
		}
	}
	return nil
}

type shapeRow struct {
	shapeID string
	seq     int
	point   gtfs.Point
}

func insertShapes(ctx context.Context, tx *sql.Tx, shapes map[string][]gtfs.Point) error {
	var rows []shapeRow
	for id, points := range shapes {
		for seq, p := range points {
			rows = append(rows, shapeRow{shapeID: id, seq: seq, point: p})
		}
	}

	const baseQuery = "INSERT INTO shapes (shape_id, seq, lat, lon) VALUES "
	for start := 0; start < len(rows); start += insertBatchRows {
		end := start + insertBatchRows
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var query strings.Builder
		query.WriteString(baseQuery)
		args := make([]any, 0, len(batch)*4)
		for i, row := range batch {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString("(?, ?, ?, ?)")
			args = append(args, row.shapeID, row.seq, row.point.Lat, row.point.Lon)
		}

		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("failed to insert shapes batch: %w", err)
		}
	}
	return nil
}

func writeMeta(ctx context.Context, tx *sql.Tx, createdAt time.Time, modified time.Time, etag string) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	if _, err := stmt.ExecContext(ctx, metaCreatedAt, strconv.FormatInt(createdAt.Unix(), 10)); err != nil {
		return fmt.Errorf("unable to write meta: %w", err)
	}
	if !modified.IsZero() {
		if _, err := stmt.ExecContext(ctx, metaLastModified, strconv.FormatInt(modified.Unix(), 10)); err != nil {
			return fmt.Errorf("unable to write meta: %w", err)
		}
	}
	if etag != "" {
		if _, err := stmt.ExecContext(ctx, metaETag, etag); err != nil {
			return fmt.Errorf("unable to write meta: %w", err)
		}
	}
	return nil
}
