package restapi

import (
	"net/http"
	"strconv"

	"zetlive.dev/internal/wire"
)

const (
	defaultStopsNearRadiusMeters = 500.0
	maxStopsNearRadiusMeters     = 10000.0
)

// stopsNearHandler serves the stops within radius meters of a coordinate,
// nearest first, as simple-stop tuples. lat and lon are required; radius is
// optional and clamped to the maximum.
func (api *RestAPI) stopsNearHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		api.sendBadRequest(w, "invalid lat")
		return
	}
	lon, err := strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		api.sendBadRequest(w, "invalid lon")
		return
	}

	radius := defaultStopsNearRadiusMeters
	if raw := query.Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			api.sendBadRequest(w, "invalid radius")
			return
		}
		if radius > maxStopsNearRadiusMeters {
			radius = maxStopsNearRadiusMeters
		}
	}

	snapshot, ts := api.scheduleSnapshot()
	payload := simpleStopsPayload{SimpleStops: []wire.SimpleStop{}}
	if snapshot != nil {
		payload.SimpleStops = snapshot.StopsNear(lat, lon, radius)
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, payload))
}
