package gtfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/clock"
)

func TestManager_StartPublishesBothFeeds(t *testing.T) {
	realtimeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buildFeed(t, 1700000000,
			feedVehicle{entityID: "e1", vehicleID: "101", tripID: "T1", routeID: "6", lat: 45.813, lon: 15.977},
		))
	}))
	defer realtimeServer.Close()

	scheduleData := buildScheduleZip(t, fixtureFiles())
	scheduleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT")
		w.Header().Set("ETag", `"A"`)
		_, _ = w.Write(scheduleData)
	}))
	defer scheduleServer.Close()

	schedule := NewScheduleStore()
	feed := NewFeedStore()
	m := NewManager(Config{
		DataFetchEndpoint:     realtimeServer.URL,
		DataFetchInterval:     time.Hour,
		ScheduleFetchEndpoint: scheduleServer.URL,
		ScheduleFetchInterval: time.Hour,
		Logger:                discardLogger(),
		Clock:                 clock.NewMockClock(time.Unix(1700000100, 0)),
	}, schedule, feed)

	m.Start()
	defer m.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	feedSnapshot, err := feed.AwaitSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), feedSnapshot.Timestamp)
	assert.Len(t, feedSnapshot.Vehicles(), 1)

	scheduleSnapshot, err := schedule.AwaitSet(ctx)
	require.NoError(t, err)
	assert.Len(t, scheduleSnapshot.Trips, 3)
}

func TestManager_ShutdownStopsLoops(t *testing.T) {
	realtimeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buildFeed(t, 1700000000))
	}))
	defer realtimeServer.Close()

	scheduleData := buildScheduleZip(t, fixtureFiles())
	scheduleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(scheduleData)
	}))
	defer scheduleServer.Close()

	m := newTestManager(t, realtimeServer.URL, scheduleServer.URL)
	m.Start()

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	// Safe to call again once the loops are gone.
	m.Shutdown()
}

func TestManager_DefaultsLoggerAndClock(t *testing.T) {
	m := NewManager(Config{}, NewScheduleStore(), NewFeedStore())

	assert.NotNil(t, m.logger)
	assert.NotNil(t, m.clock)
}
