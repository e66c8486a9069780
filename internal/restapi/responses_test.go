package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/wire"
)

func TestSendNegotiated_JSONByDefault(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	api.sendNegotiated(rec, req, wire.NewVersioned(42, []string{"a", "b"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"v":1,"ts":42,"d":["a","b"]}`, rec.Body.String())
}

func TestSendNegotiated_CBOROnRequest(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	req.Header.Set("Accept", "application/cbor")
	api.sendNegotiated(rec, req, wire.NewVersioned(42, []string{"a"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/cbor", rec.Header().Get("Content-Type"))

	var decoded wire.Versioned[[]string]
	require.NoError(t, wire.UnmarshalCBOR(rec.Body.Bytes(), &decoded))
	assert.Equal(t, wire.Versioned[[]string]{V: 1, Ts: 42, D: []string{"a"}}, decoded)
}

func TestSendNegotiated_NotAcceptable(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	req.Header.Set("Accept", "text/html")
	api.sendNegotiated(rec, req, wire.NewVersioned(0, []string{}))

	require.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "not acceptable")
}

func TestSendNegotiated_SerializationFailureIs500(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	// A channel has no JSON representation, so marshalling must fail.
	api.sendNegotiated(rec, req, map[string]any{"bad": make(chan int)})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestSendNotFound(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.sendNotFound(rec, "route")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "route not found\n", rec.Body.String())
}

func TestScheduleSnapshotTimestamp(t *testing.T) {
	api, _ := newTestAPI(t)

	snapshot, ts := api.scheduleSnapshot()
	assert.Nil(t, snapshot)
	assert.Zero(t, ts)

	api.Schedule.Set(testScheduleSnapshot())
	snapshot, ts = api.scheduleSnapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, time.Unix(1700000000, 0).Unix(), ts)
}

func TestFeedSnapshotTimestamp(t *testing.T) {
	api, _ := newTestAPI(t)

	snapshot, ts := api.feedSnapshot()
	assert.Nil(t, snapshot)
	assert.Zero(t, ts)

	api.Feed.Set(testFeedSnapshot())
	snapshot, ts = api.feedSnapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(1700000060), ts)
}
