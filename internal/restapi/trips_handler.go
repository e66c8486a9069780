package restapi

import (
	"net/http"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/wire"
)

// tripsHandler dumps the schedule's trip table keyed by trip id.
func (api *RestAPI) tripsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	trips := map[string]*gtfs.Trip{}
	if snapshot != nil {
		trips = snapshot.Trips
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, trips))
}

// tripHandler looks up a single trip by id.
func (api *RestAPI) tripHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	if snapshot == nil {
		api.sendNotFound(w, "trip")
		return
	}
	trip, ok := snapshot.TripByID(r.PathValue("id"))
	if !ok {
		api.sendNotFound(w, "trip")
		return
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, trip))
}
