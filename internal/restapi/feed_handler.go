package restapi

import (
	"net/http"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/wire"
)

// feedHandler serves the latest decoded realtime feed: the full entity list,
// incomplete entities included. Before the first successful fetch the list
// is empty and ts is zero.
func (api *RestAPI) feedHandler(w http.ResponseWriter, r *http.Request) {
	entities := []gtfs.FeedEntity{}
	snapshot, ts := api.feedSnapshot()
	if snapshot != nil {
		entities = snapshot.Entities
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, entities))
}
