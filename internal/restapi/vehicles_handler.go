package restapi

import (
	"net/http"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/wire"
)

// vehiclesHandler serves the current vehicles in long form, keyed fields
// rather than the broadcast tuples. Entities missing vehicle, trip or
// position are filtered out, the same projection the fusion engine uses.
func (api *RestAPI) vehiclesHandler(w http.ResponseWriter, r *http.Request) {
	vehicles := []gtfs.Vehicle{}
	snapshot, ts := api.feedSnapshot()
	if snapshot != nil {
		vehicles = snapshot.Vehicles()
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, vehicles))
}
