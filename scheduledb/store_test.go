package scheduledb

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/gtfs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshot(createdAt time.Time) *gtfs.ScheduleSnapshot {
	routes := map[string]*gtfs.Route{
		"6":   {ID: "6", ShortName: "6", LongName: "Črnomerec - Sopot", Type: 0, Color: "0000FF", TextColor: "FFFFFF"},
		"109": {ID: "109", ShortName: "109", LongName: "Črnomerec - Dugave", Type: 3, Color: "FFFFFF", TextColor: "000000"},
	}
	stops := map[string]*gtfs.Stop{
		"S1": {ID: "S1", Name: "Trg bana Jelačića", Lat: 45.813, Lon: 15.977, TripIDs: []string{"T1"}},
		"S2": {ID: "S2", Name: "Zapadni kolodvor", Lat: 45.8131, Lon: 15.9581, ParentStation: "P1", LocationType: 0, WheelchairBoarding: 1, TripIDs: []string{"T1", "T2"}},
	}
	trips := map[string]*gtfs.Trip{
		"T1": {ID: "T1", RouteID: "6", ServiceID: "WK", Headsign: "Sopot", ShapeID: "SH1", StopIDs: []string{"S1", "S2"}},
		"T2": {ID: "T2", RouteID: "109", ServiceID: "SA", Headsign: "Dugave", DirectionID: 1, StopIDs: []string{"S2"}},
	}
	shapes := map[string][]gtfs.Point{
		"SH1": {
			{Lat: 45.813, Lon: 15.977},
			{Lat: 45.8131, Lon: 15.9581},
		},
	}
	return gtfs.NewScheduleSnapshot(routes, stops, trips, shapes, createdAt)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	createdAt := time.Unix(1700000000, 0).UTC()
	modified := time.Unix(1699990000, 0).UTC()
	saved := sampleSnapshot(createdAt)

	require.NoError(t, store.SaveSchedule(saved, modified, `"v42"`))

	loaded, gotModified, gotETag, err := store.LoadSchedule()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, createdAt, loaded.CreatedAt)
	assert.Equal(t, modified, gotModified)
	assert.Equal(t, `"v42"`, gotETag)

	assert.Equal(t, saved.Routes, loaded.Routes)
	assert.Equal(t, saved.Stops, loaded.Stops)
	assert.Equal(t, saved.Trips, loaded.Trips)
	assert.Equal(t, saved.Shapes, loaded.Shapes)
}

func TestLoadEmptyCacheReturnsNil(t *testing.T) {
	store := openTestStore(t)

	snapshot, modified, etag, err := store.LoadSchedule()
	require.NoError(t, err)

	assert.Nil(t, snapshot)
	assert.True(t, modified.IsZero())
	assert.Empty(t, etag)
}

func TestSaveWithoutConditionalPair(t *testing.T) {
	store := openTestStore(t)

	createdAt := time.Unix(1700000000, 0).UTC()
	require.NoError(t, store.SaveSchedule(sampleSnapshot(createdAt), time.Time{}, ""))

	loaded, modified, etag, err := store.LoadSchedule()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, modified.IsZero())
	assert.Empty(t, etag)
}

func TestSaveReplacesPreviousSchedule(t *testing.T) {
	store := openTestStore(t)

	createdAt := time.Unix(1700000000, 0).UTC()
	require.NoError(t, store.SaveSchedule(sampleSnapshot(createdAt), time.Time{}, ""))

	// Second save: a smaller schedule must fully displace the first.
	second := gtfs.NewScheduleSnapshot(
		map[string]*gtfs.Route{"11": {ID: "11", ShortName: "11", LongName: "Črnomerec - Dubec", Type: 0, Color: "FFFFFF", TextColor: "000000"}},
		map[string]*gtfs.Stop{"S9": {ID: "S9", Name: "Dubec", Lat: 45.83, Lon: 16.06, TripIDs: []string{}}},
		map[string]*gtfs.Trip{},
		map[string][]gtfs.Point{},
		createdAt.Add(time.Hour),
	)
	require.NoError(t, store.SaveSchedule(second, time.Time{}, ""))

	loaded, _, _, err := store.LoadSchedule()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Len(t, loaded.Routes, 1)
	assert.Contains(t, loaded.Routes, "11")
	assert.Len(t, loaded.Stops, 1)
	assert.Empty(t, loaded.Trips)
	assert.Empty(t, loaded.Shapes)
	assert.Equal(t, createdAt.Add(time.Hour), loaded.CreatedAt)

	counts, err := store.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 0, counts["trip_stops"])
	assert.Equal(t, 0, counts["shapes"])
}

func TestJoinOrderSurvivesRoundTrip(t *testing.T) {
	store := openTestStore(t)

	// A loop trip visits S1 twice; the sequence must come back intact.
	stops := map[string]*gtfs.Stop{
		"S1": {ID: "S1", Name: "Borongaj", Lat: 45.81, Lon: 16.01, TripIDs: []string{"T9"}},
		"S2": {ID: "S2", Name: "Kvaternikov trg", Lat: 45.812, Lon: 15.993, TripIDs: []string{"T9"}},
	}
	trips := map[string]*gtfs.Trip{
		"T9": {ID: "T9", RouteID: "R", ServiceID: "WK", StopIDs: []string{"S1", "S2", "S1"}},
	}
	routes := map[string]*gtfs.Route{
		"R": {ID: "R", ShortName: "R", LongName: "Loop", Type: 0, Color: "FFFFFF", TextColor: "000000"},
	}
	snapshot := gtfs.NewScheduleSnapshot(routes, stops, trips, map[string][]gtfs.Point{}, time.Unix(1700000000, 0).UTC())

	require.NoError(t, store.SaveSchedule(snapshot, time.Time{}, ""))

	loaded, _, _, err := store.LoadSchedule()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, []string{"S1", "S2", "S1"}, loaded.Trips["T9"].StopIDs)
	assert.Equal(t, []string{"T9"}, loaded.Stops["S1"].TripIDs)
}

func TestOpenBadDirectory(t *testing.T) {
	// A file where the directory should be makes the path uninitializable.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(filepath.Join(blocker, "cache.db"), testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadDirectory)
}

func TestOpenCorruptFileIsNotBadDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite"), 0o644))

	_, err := Open(path, testLogger())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadDirectory)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cache.db")

	store, err := Open(path, testLogger())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveSchedule(sampleSnapshot(time.Unix(1700000000, 0).UTC()), time.Time{}, ""))

	loaded, _, _, err := store.LoadSchedule()
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}
