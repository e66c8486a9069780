package restapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopTripsHandler_UnionInRequestOrder(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/stop-trips?stop=S2&stop=S1", nil)
	got := decodeVersionedJSON[stopTripsPayload](t, rec)

	// S2 contributes T1 and T4; S1 repeats T1, which is dropped.
	assert.Equal(t, []string{"T1", "T4"}, got.D.StopTrips)
}

func TestStopTripsHandler_UnknownStopsContributeNothing(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/stop-trips?stop=SX&stop=S3", nil)
	got := decodeVersionedJSON[stopTripsPayload](t, rec)

	assert.Equal(t, []string{"T7"}, got.D.StopTrips)
}

func TestStopTripsHandler_NoStopsRequested(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/stop-trips", nil)
	got := decodeVersionedJSON[stopTripsPayload](t, rec)

	assert.NotNil(t, got.D.StopTrips)
	assert.Empty(t, got.D.StopTrips)
}
