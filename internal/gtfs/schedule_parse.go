package gtfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/flate"
	"github.com/spkg/bom"
)

// ErrMissingFile reports a schedule bundle without one of the required CSVs.
var ErrMissingFile = errors.New("required schedule file missing")

var scheduleFiles = []string{"routes.txt", "trips.txt", "stops.txt", "shapes.txt", "stop_times.txt"}

// CSV rows carry every field as a string so a malformed value drops that row
// alone during conversion instead of aborting the whole file.
type routeRow struct {
	ID        string `csv:"route_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

type stopRow struct {
	ID                 string `csv:"stop_id"`
	Name               string `csv:"stop_name"`
	Lat                string `csv:"stop_lat"`
	Lon                string `csv:"stop_lon"`
	ParentStation      string `csv:"parent_station"`
	LocationType       string `csv:"location_type"`
	WheelchairBoarding string `csv:"wheelchair_boarding"`
}

type tripRow struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID string `csv:"direction_id"`
	ShapeID     string `csv:"shape_id"`
}

type shapeRow struct {
	ShapeID  string `csv:"shape_id"`
	Lat      string `csv:"shape_pt_lat"`
	Lon      string `csv:"shape_pt_lon"`
	Sequence string `csv:"shape_pt_sequence"`
}

type stopTimeRow struct {
	TripID   string `csv:"trip_id"`
	StopID   string `csv:"stop_id"`
	Sequence string `csv:"stop_sequence"`
}

// ParseSchedule parses a GTFS schedule ZIP into a snapshot. Entries are
// matched by base name so bundles nested one directory deep still load. Rows
// with malformed values are dropped silently; a missing required file fails
// the whole parse.
func ParseSchedule(data []byte, createdAt time.Time, logger *slog.Logger) (*ScheduleSnapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open schedule bundle: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	wanted := make(map[string]bool, len(scheduleFiles))
	for _, name := range scheduleFiles {
		wanted[name] = true
	}

	entries := map[string]*zip.File{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		if !wanted[name] {
			continue
		}
		if _, taken := entries[name]; !taken {
			entries[name] = f
		}
	}
	for _, name := range scheduleFiles {
		if entries[name] == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
	}

	// LazyCSVReader survives sloppy quoting; the BOM reader strips a
	// leading unicode BOM if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	b := newSnapshotBuilder(logger)

	if err := decodeEntry(entries["routes.txt"], b.addRoute); err != nil {
		return nil, err
	}
	if err := decodeEntry(entries["stops.txt"], b.addStop); err != nil {
		return nil, err
	}
	if err := decodeEntry(entries["trips.txt"], b.addTrip); err != nil {
		return nil, err
	}
	if err := decodeEntry(entries["shapes.txt"], b.addShapePoint); err != nil {
		return nil, err
	}
	if err := decodeEntry(entries["stop_times.txt"], b.addStopTime); err != nil {
		return nil, err
	}

	return b.build(createdAt), nil
}

func decodeEntry[T any](f *zip.File, add func(T)) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	if err := gocsv.UnmarshalToCallback(rc, add); err != nil {
		return fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return nil
}

type shapePointRec struct {
	shapeID  string
	lat      float64
	lon      float64
	sequence int
}

type stopTimeRec struct {
	tripID   string
	stopID   string
	sequence int
}

type snapshotBuilder struct {
	logger *slog.Logger

	routes map[string]*Route
	stops  map[string]*Stop
	trips  map[string]*Trip

	shapePoints []shapePointRec
	stopTimes   []stopTimeRec

	droppedRows int
}

func newSnapshotBuilder(logger *slog.Logger) *snapshotBuilder {
	return &snapshotBuilder{
		logger: logger,
		routes: map[string]*Route{},
		stops:  map[string]*Stop{},
		trips:  map[string]*Trip{},
	}
}

func (b *snapshotBuilder) addRoute(row routeRow) {
	routeType, err := strconv.Atoi(row.Type)
	if row.ID == "" || err != nil {
		b.droppedRows++
		return
	}
	color := row.Color
	if color == "" {
		color = DefaultRouteColor
	}
	textColor := row.TextColor
	if textColor == "" {
		textColor = DefaultRouteTextColor
	}
	b.routes[row.ID] = &Route{
		ID:        row.ID,
		ShortName: row.ShortName,
		LongName:  row.LongName,
		Type:      routeType,
		Color:     color,
		TextColor: textColor,
	}
}

func (b *snapshotBuilder) addStop(row stopRow) {
	lat, latErr := strconv.ParseFloat(row.Lat, 64)
	lon, lonErr := strconv.ParseFloat(row.Lon, 64)
	locationType, locOK := optionalInt(row.LocationType)
	wheelchair, wcOK := optionalInt(row.WheelchairBoarding)
	if row.ID == "" || latErr != nil || lonErr != nil || !locOK || !wcOK {
		b.droppedRows++
		return
	}
	b.stops[row.ID] = &Stop{
		ID:                 row.ID,
		Name:               row.Name,
		Lat:                lat,
		Lon:                lon,
		ParentStation:      row.ParentStation,
		LocationType:       locationType,
		WheelchairBoarding: wheelchair,
		TripIDs:            []string{},
	}
}

func (b *snapshotBuilder) addTrip(row tripRow) {
	directionID, ok := optionalInt(row.DirectionID)
	if row.ID == "" || row.RouteID == "" || !ok {
		b.droppedRows++
		return
	}
	b.trips[row.ID] = &Trip{
		ID:          row.ID,
		RouteID:     row.RouteID,
		ServiceID:   row.ServiceID,
		Headsign:    row.Headsign,
		DirectionID: directionID,
		ShapeID:     row.ShapeID,
		StopIDs:     []string{},
	}
}

func (b *snapshotBuilder) addShapePoint(row shapeRow) {
	lat, latErr := strconv.ParseFloat(row.Lat, 64)
	lon, lonErr := strconv.ParseFloat(row.Lon, 64)
	sequence, seqErr := strconv.Atoi(row.Sequence)
	if row.ShapeID == "" || latErr != nil || lonErr != nil || seqErr != nil {
		b.droppedRows++
		return
	}
	b.shapePoints = append(b.shapePoints, shapePointRec{
		shapeID:  row.ShapeID,
		lat:      lat,
		lon:      lon,
		sequence: sequence,
	})
}

func (b *snapshotBuilder) addStopTime(row stopTimeRow) {
	sequence, err := strconv.Atoi(row.Sequence)
	if row.TripID == "" || row.StopID == "" || err != nil {
		b.droppedRows++
		return
	}
	b.stopTimes = append(b.stopTimes, stopTimeRec{
		tripID:   row.TripID,
		stopID:   row.StopID,
		sequence: sequence,
	})
}

// optionalInt parses an optional numeric field: empty means zero, anything
// unparseable invalidates the row.
func optionalInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (b *snapshotBuilder) build(createdAt time.Time) *ScheduleSnapshot {
	// Shape points grouped per shape in sequence order.
	sort.SliceStable(b.shapePoints, func(i, j int) bool {
		if b.shapePoints[i].shapeID != b.shapePoints[j].shapeID {
			return b.shapePoints[i].shapeID < b.shapePoints[j].shapeID
		}
		return b.shapePoints[i].sequence < b.shapePoints[j].sequence
	})
	shapes := make(map[string][]Point)
	for _, p := range b.shapePoints {
		shapes[p.shapeID] = append(shapes[p.shapeID], Point{Lat: p.lat, Lon: p.lon})
	}

	// Stop times sorted by (trip, sequence); each surviving row appends the
	// stop to its trip's ordered list and the trip to its stop's inverse
	// list.
	sort.SliceStable(b.stopTimes, func(i, j int) bool {
		if b.stopTimes[i].tripID != b.stopTimes[j].tripID {
			return b.stopTimes[i].tripID < b.stopTimes[j].tripID
		}
		return b.stopTimes[i].sequence < b.stopTimes[j].sequence
	})

	danglingTrips := 0
	danglingStops := 0
	for _, st := range b.stopTimes {
		trip, tripOK := b.trips[st.tripID]
		stop, stopOK := b.stops[st.stopID]
		if !tripOK {
			danglingTrips++
		}
		if !stopOK {
			danglingStops++
		}
		if !tripOK || !stopOK {
			continue
		}
		trip.StopIDs = append(trip.StopIDs, stop.ID)
		// Rows are grouped by trip, so a repeat of this trip can only be
		// the most recent append.
		if n := len(stop.TripIDs); n == 0 || stop.TripIDs[n-1] != trip.ID {
			stop.TripIDs = append(stop.TripIDs, trip.ID)
		}
	}

	danglingRoutes := 0
	for _, trip := range b.trips {
		if _, ok := b.routes[trip.RouteID]; !ok {
			danglingRoutes++
		}
	}

	if danglingTrips > 0 || danglingStops > 0 || danglingRoutes > 0 {
		b.logger.Warn("schedule has dangling references",
			slog.Int("stop_times_unknown_trip", danglingTrips),
			slog.Int("stop_times_unknown_stop", danglingStops),
			slog.Int("trips_unknown_route", danglingRoutes))
	}
	if b.droppedRows > 0 {
		b.logger.Debug("dropped malformed schedule rows", slog.Int("rows", b.droppedRows))
	}

	return NewScheduleSnapshot(b.routes, b.stops, b.trips, shapes, createdAt)
}
