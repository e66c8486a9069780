package restapi

import (
	"net/http"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/wire"
)

// routesHandler dumps the schedule's route table keyed by route id.
func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	routes := map[string]*gtfs.Route{}
	if snapshot != nil {
		routes = snapshot.Routes
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, routes))
}

// routeHandler looks up a single route by id.
func (api *RestAPI) routeHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	if snapshot == nil {
		api.sendNotFound(w, "route")
		return
	}
	route, ok := snapshot.RouteByID(r.PathValue("id"))
	if !ok {
		api.sendNotFound(w, "route")
		return
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, route))
}
