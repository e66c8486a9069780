package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/gtfs"
)

func TestVehiclesHandler_EmptyBeforeFirstFetch(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doGet(t, handler, "/api/v1/vehicles", nil)
	got := decodeVersionedJSON[[]gtfs.Vehicle](t, rec)

	assert.Zero(t, got.Ts)
	assert.NotNil(t, got.D)
	assert.Empty(t, got.D)
}

func TestVehiclesHandler_FiltersIncompleteEntities(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Feed.Set(testFeedSnapshot())

	rec := doGet(t, handler, "/api/v1/vehicles", nil)
	got := decodeVersionedJSON[[]gtfs.Vehicle](t, rec)

	assert.Equal(t, int64(1700000060), got.Ts)
	require.Len(t, got.D, 2)
	assert.Equal(t, gtfs.Vehicle{ID: "101", RouteID: "6", TripID: "T1", Lat: 45.81, Lon: 15.97}, got.D[0])
	assert.Equal(t, "102", got.D[1].ID)
}

func TestVehiclesHandler_CBORNegotiation(t *testing.T) {
	api, handler := newTestAPI(t)
	api.Feed.Set(testFeedSnapshot())

	rec := doGet(t, handler, "/api/v1/vehicles", map[string][]string{"Accept": {"application/cbor"}})
	got := decodeVersionedCBOR[[]gtfs.Vehicle](t, rec)
	assert.Len(t, got.D, 2)

	rec = doGet(t, handler, "/api/v1/vehicles", map[string][]string{"Accept": {"text/html"}})
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}
