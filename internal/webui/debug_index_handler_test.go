package webui

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetlive.dev/internal/app"
	"zetlive.dev/internal/appconf"
	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/hub"
	"zetlive.dev/internal/metrics"
)

func newTestWebUI(t *testing.T, cfg appconf.Config) *WebUI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWebUI(&app.Application{
		Config:   cfg,
		Logger:   logger,
		Schedule: gtfs.NewScheduleStore(),
		Feed:     gtfs.NewFeedStore(),
		Hub:      hub.New(logger, metrics.New()),
	})
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	webUI := newTestWebUI(t, appconf.Config{Env: appconf.Production})

	rec := httptest.NewRecorder()
	webUI.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug?dataType=schedule", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugIndexHandler_DumpsSchedule(t *testing.T) {
	webUI := newTestWebUI(t, appconf.Config{Env: appconf.Development})
	stops := map[string]*gtfs.Stop{
		"S1": {ID: "S1", Name: "Trg bana Jelačića", Lat: 45.813, Lon: 15.977},
	}
	webUI.Schedule.Set(gtfs.NewScheduleSnapshot(nil, stops, nil, nil, time.Unix(1700000000, 0)))

	rec := httptest.NewRecorder()
	webUI.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug?dataType=schedule", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Trg bana Jela")
}

func TestDebugIndexHandler_DumpsConfig(t *testing.T) {
	cfg := appconf.DefaultConfig()
	webUI := newTestWebUI(t, cfg)

	rec := httptest.NewRecorder()
	webUI.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug?dataType=config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gtfs-rt-protobuf")
}

func TestDebugIndexHandler_UnknownDataTypeShowsChooser(t *testing.T) {
	webUI := newTestWebUI(t, appconf.Config{Env: appconf.Development})

	rec := httptest.NewRecorder()
	webUI.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Choose a data type")
}
