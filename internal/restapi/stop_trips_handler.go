package restapi

import (
	"net/http"

	"zetlive.dev/internal/wire"
)

type stopTripsPayload struct {
	StopTrips []string `json:"stopTrips" cbor:"stopTrips"`
}

// stopTripsHandler serves the union of the trip lists of the requested
// stops (?stop=S1&stop=S2), de-duplicated, in first-seen order. Unknown stop
// ids contribute nothing rather than failing the whole request.
func (api *RestAPI) stopTripsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	payload := stopTripsPayload{StopTrips: []string{}}
	if snapshot != nil {
		payload.StopTrips = snapshot.StopTrips(r.URL.Query()["stop"]...)
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, payload))
}
