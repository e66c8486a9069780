package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/gtfs"
)

func TestRoutesHandler_Dump(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/routes", nil)
	got := decodeVersionedJSON[map[string]gtfs.Route](t, rec)

	assert.Equal(t, int64(1700000000), got.Ts)
	require.Len(t, got.D, 2)
	assert.Equal(t, "Črnomerec - Sopot", got.D["6"].LongName)
	assert.Equal(t, "0000FF", got.D["6"].Color)
}

func TestRoutesHandler_EmptyWithoutSchedule(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doGet(t, handler, "/api/v1/schedule/routes", nil)
	got := decodeVersionedJSON[map[string]gtfs.Route](t, rec)

	assert.Zero(t, got.Ts)
	assert.NotNil(t, got.D)
	assert.Empty(t, got.D)
}

func TestRouteHandler_Lookup(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/routes/109", nil)
	got := decodeVersionedJSON[gtfs.Route](t, rec)

	assert.Equal(t, "109", got.D.ID)
	assert.Equal(t, 3, got.D.Type)
}

func TestRouteHandler_NotFound(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Schedule.Set(testScheduleSnapshot())

	rec := doGet(t, handler, "/api/v1/schedule/routes/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found\n", rec.Body.String())
}

func TestRouteHandler_NotFoundWithoutSchedule(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doGet(t, handler, "/api/v1/schedule/routes/6", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
