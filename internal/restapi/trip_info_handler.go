package restapi

import (
	"net/http"

	"zetlive.dev/internal/wire"
)

// tripInfoPayload is the drawable summary of one trip: its stop sequence and
// the path to render, as (longitude, latitude) pairs.
type tripInfoPayload struct {
	StopIDs []string     `json:"stop_ids" cbor:"stop_ids"`
	Route   [][2]float64 `json:"route" cbor:"route"`
}

// tripInfoHandler serves the stop sequence and path of one trip. The path
// comes from the trip's shape when it has one; otherwise it is synthesized
// from the ordered stop coordinates.
func (api *RestAPI) tripInfoHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	if snapshot == nil {
		api.sendNotFound(w, "trip")
		return
	}
	trip, ok := snapshot.TripByID(r.PathValue("trip_id"))
	if !ok {
		api.sendNotFound(w, "trip")
		return
	}
	payload := tripInfoPayload{
		StopIDs: trip.StopIDs,
		Route:   snapshot.TripPath(trip),
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, payload))
}
