// test_helper.go builds the fixture application and snapshots the handler
// tests run against, and decodes Versioned response bodies.
package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/app"
	"zetlive.dev/internal/appconf"
	"zetlive.dev/internal/clock"
	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/hub"
	"zetlive.dev/internal/metrics"
	"zetlive.dev/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication wires an application with empty stores, a fresh hub
// and a mock clock. Tests publish snapshots into the stores as needed.
func newTestApplication(t *testing.T) *app.Application {
	t.Helper()
	logger := testLogger()
	m := metrics.New()
	return &app.Application{
		Config:    appconf.DefaultConfig(),
		Logger:    logger,
		Metrics:   m,
		Clock:     clock.NewMockClock(time.Unix(1700000100, 0)),
		Schedule:  gtfs.NewScheduleStore(),
		Feed:      gtfs.NewFeedStore(),
		Hub:       hub.New(logger, m),
		StartedAt: time.Unix(1700000040, 0),
	}
}

// newTestAPI returns a RestAPI over a fresh test application together with
// its fully assembled handler.
func newTestAPI(t *testing.T) (*RestAPI, http.Handler) {
	t.Helper()
	api := NewRestAPI(newTestApplication(t))
	return api, api.Routes(nil)
}

// testScheduleSnapshot is a small joined schedule: two routes, three stops,
// three trips, one shape. T1 runs on route 6 with shape SH1; T3 has no
// shape. Stop S3 is served by no live trip in the feed fixture.
func testScheduleSnapshot() *gtfs.ScheduleSnapshot {
	routes := map[string]*gtfs.Route{
		"6":   {ID: "6", ShortName: "6", LongName: "Črnomerec - Sopot", Type: 0, Color: "0000FF", TextColor: "FFFFFF"},
		"109": {ID: "109", ShortName: "109", LongName: "Črnomerec - Dugave", Type: 3, Color: "FFFFFF", TextColor: "000000"},
	}
	stops := map[string]*gtfs.Stop{
		"S1": {ID: "S1", Name: "Trg bana Jelačića", Lat: 45.813, Lon: 15.977, TripIDs: []string{"T1"}},
		"S2": {ID: "S2", Name: "Zapadni kolodvor", Lat: 45.8131, Lon: 15.9581, TripIDs: []string{"T1", "T4"}},
		"S3": {ID: "S3", Name: "Savski most", Lat: 45.779, Lon: 15.963, TripIDs: []string{"T7"}},
	}
	trips := map[string]*gtfs.Trip{
		"T1": {ID: "T1", RouteID: "6", ServiceID: "WK", Headsign: "Sopot", ShapeID: "SH1", StopIDs: []string{"S1", "S2"}},
		"T4": {ID: "T4", RouteID: "109", ServiceID: "WK", Headsign: "Dugave", StopIDs: []string{"S2"}},
		"T7": {ID: "T7", RouteID: "109", ServiceID: "SA", Headsign: "Črnomerec", StopIDs: []string{"S3", "S1"}},
	}
	shapes := map[string][]gtfs.Point{
		"SH1": {
			{Lat: 45.813, Lon: 15.977},
			{Lat: 45.8131, Lon: 15.9581},
		},
	}
	return gtfs.NewScheduleSnapshot(routes, stops, trips, shapes, time.Unix(1700000000, 0))
}

// testFeedSnapshot carries two complete entities on trips T1 and T4 plus an
// incomplete one that only the raw feed endpoint should surface.
func testFeedSnapshot() *gtfs.FeedSnapshot {
	return &gtfs.FeedSnapshot{
		Timestamp: 1700000060,
		Entities: []gtfs.FeedEntity{
			{
				ID:       "e1",
				Vehicle:  &gtfs.VehicleRef{ID: "101"},
				Trip:     &gtfs.TripRef{TripID: "T1", RouteID: "6"},
				Position: &gtfs.Position{Lat: 45.81, Lon: 15.97},
			},
			{
				ID:       "e2",
				Vehicle:  &gtfs.VehicleRef{ID: "102"},
				Trip:     &gtfs.TripRef{TripID: "T4", RouteID: "109"},
				Position: &gtfs.Position{Lat: 45.78, Lon: 15.96},
			},
			{
				ID:      "e3",
				Vehicle: &gtfs.VehicleRef{ID: "103"},
			},
		},
	}
}

// doGet runs one request through the handler and returns the recorder.
// header may be nil.
func doGet(t *testing.T, handler http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeVersionedJSON asserts a 200 JSON response and decodes its envelope.
func decodeVersionedJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) wire.Versioned[T] {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	var v wire.Versioned[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// decodeVersionedCBOR asserts a 200 CBOR response and decodes its envelope.
func decodeVersionedCBOR[T any](t *testing.T, rec *httptest.ResponseRecorder) wire.Versioned[T] {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/cbor", rec.Header().Get("Content-Type"))
	var v wire.Versioned[T]
	require.NoError(t, wire.UnmarshalCBOR(rec.Body.Bytes(), &v))
	return v
}
