package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/gtfs"
)

func TestTripsHandler_Dump(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/trips", nil)
	got := decodeVersionedJSON[map[string]gtfs.Trip](t, rec)

	require.Len(t, got.D, 3)
	assert.Equal(t, "6", got.D["T1"].RouteID)
	assert.Equal(t, []string{"S1", "S2"}, got.D["T1"].StopIDs)
}

func TestTripHandler_Lookup(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/trips/T4", nil)
	got := decodeVersionedJSON[gtfs.Trip](t, rec)

	assert.Equal(t, "109", got.D.RouteID)
	assert.Equal(t, "Dugave", got.D.Headsign)
}

func TestTripHandler_NotFound(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/trips/TX", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "trip not found\n", rec.Body.String())
}
