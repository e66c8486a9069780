// Package restapi serves the read-only HTTP surface: Versioned projections
// of the latest feed and schedule snapshots, the websocket broadcast
// endpoint, health and metrics. Handlers never block on upstream fetches;
// they read whatever snapshot is current.
package restapi

import (
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zetlive.dev/internal/app"
	"zetlive.dev/internal/logging"
)

// restRequestTimeout bounds every REST handler. The websocket route is not
// subject to it because the connection is hijacked and long-lived.
const restRequestTimeout = 60 * time.Second

// scheduleCacheSeconds is the max-age stamped on schedule projections. The
// schedule refreshes at the fetch interval's cadence, so a short client
// cache never serves anything older than one interval.
const scheduleCacheSeconds = 60

// RestAPI carries the application dependencies for the handler methods.
type RestAPI struct {
	*app.Application
}

func NewRestAPI(application *app.Application) *RestAPI {
	return &RestAPI{Application: application}
}

// Routes builds the full handler: the API surface plus health and metrics,
// wrapped in the middleware chain. fallback, when non-nil, serves every
// request no other pattern matches (the front-end bundle and debug page).
func (api *RestAPI) Routes(fallback http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/feed", api.live(api.feedHandler))
	mux.Handle("GET /api/v1/vehicles", api.live(api.vehiclesHandler))

	mux.Handle("GET /api/v1/schedule/routes", api.cached(api.routesHandler))
	mux.Handle("GET /api/v1/schedule/routes/{id}", api.cached(api.routeHandler))
	mux.Handle("GET /api/v1/schedule/stops", api.cached(api.stopsHandler))
	mux.Handle("GET /api/v1/schedule/stops/{id}", api.cached(api.stopHandler))
	mux.Handle("GET /api/v1/schedule/trips", api.cached(api.tripsHandler))
	mux.Handle("GET /api/v1/schedule/trips/{id}", api.cached(api.tripHandler))
	mux.Handle("GET /api/v1/schedule/shapes/{id}", api.cached(api.shapeHandler))
	mux.Handle("GET /api/v1/schedule/shapes/{id}/polyline", api.cached(api.shapePolylineHandler))
	mux.Handle("GET /api/v1/schedule/simple-stops", api.cached(api.simpleStopsHandler))
	mux.Handle("GET /api/v1/schedule/stop-trips", api.cached(api.stopTripsHandler))
	mux.Handle("GET /api/v1/schedule/trip-info/{trip_id}", api.cached(api.tripInfoHandler))
	mux.Handle("GET /api/v1/schedule/stops-near", api.cached(api.stopsNearHandler))

	// The websocket route bypasses the timeout and gzip wrappers: both
	// would break the hijacked connection.
	mux.HandleFunc("GET /api/v1/ws", api.wsHandler)
	mux.Handle("GET /api/v1/ws/connections", api.live(api.wsConnectionsHandler))

	mux.HandleFunc("GET /health", api.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))

	if fallback != nil {
		mux.Handle("/", fallback)
	}

	var handler http.Handler = mux
	handler = MetricsHandler(api.Metrics)(handler)
	handler = RecoverMiddleware(api.Logger)(handler)
	handler = CORSMiddleware(handler)
	handler = NewRequestLoggingMiddleware(logging.WithComponent(api.Logger, "request"))(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// rest wraps a REST handler with the timeout guard and gzip compression.
func rest(h http.Handler) http.Handler {
	return gzhttp.GzipHandler(http.TimeoutHandler(h, restRequestTimeout, "request timed out"))
}

// live serves realtime projections: never client-cached.
func (api *RestAPI) live(h http.HandlerFunc) http.Handler {
	return rest(CacheControlMiddleware(0, h))
}

// cached serves schedule projections with a short max-age.
func (api *RestAPI) cached(h http.HandlerFunc) http.Handler {
	return rest(CacheControlMiddleware(scheduleCacheSeconds, h))
}

// clientIP is the peer address without the port, used as the key of the
// websocket connections table.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
