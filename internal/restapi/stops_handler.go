package restapi

import (
	"net/http"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/wire"
)

// simpleStopsPayload carries the compact stop tuples under the key the
// front-end binds to.
type simpleStopsPayload struct {
	SimpleStops []wire.SimpleStop `json:"simpleStops" cbor:"simpleStops"`
}

// stopsHandler dumps the schedule's stop table keyed by stop id, trip
// back-references included.
func (api *RestAPI) stopsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	stops := map[string]*gtfs.Stop{}
	if snapshot != nil {
		stops = snapshot.Stops
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, stops))
}

// stopHandler looks up a single stop by id.
func (api *RestAPI) stopHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	if snapshot == nil {
		api.sendNotFound(w, "stop")
		return
	}
	stop, ok := snapshot.StopByID(r.PathValue("id"))
	if !ok {
		api.sendNotFound(w, "stop")
		return
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, stop))
}

// simpleStopsHandler serves every stop as an [id, name, lat, lon] tuple,
// sorted by id. This is the map bootstrap payload.
func (api *RestAPI) simpleStopsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	payload := simpleStopsPayload{SimpleStops: []wire.SimpleStop{}}
	if snapshot != nil {
		payload.SimpleStops = snapshot.SimpleStops()
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, payload))
}
