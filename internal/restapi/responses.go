package restapi

import (
	"net/http"

	"zetlive.dev/internal/gtfs"
	"zetlive.dev/internal/logging"
)

// sendNegotiated serializes payload per the request's Accept header and
// writes it. Unacceptable Accept headers get a plain-text 406, serialization
// failures a plain-text 500; both bodies stay opaque.
func (api *RestAPI) sendNegotiated(w http.ResponseWriter, r *http.Request, payload any) {
	enc, err := negotiateEncoding(r)
	if err != nil {
		http.Error(w, "not acceptable: supported types are application/json and application/cbor", http.StatusNotAcceptable)
		return
	}

	body, err := enc.marshal(payload)
	if err != nil {
		logging.LogError(api.Logger, "Error serializing response", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", enc.contentType())
	if _, err := w.Write(body); err != nil {
		logging.LogError(api.Logger, "Error writing response", err)
	}
}

// sendNotFound answers a lookup miss: plain text, "<what> not found".
func (api *RestAPI) sendNotFound(w http.ResponseWriter, what string) {
	http.Error(w, what+" not found", http.StatusNotFound)
}

func (api *RestAPI) sendBadRequest(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusBadRequest)
}

// scheduleSnapshot returns the current schedule and its timestamp for the
// Versioned envelope: the snapshot build time, or zero when none exists.
func (api *RestAPI) scheduleSnapshot() (*gtfs.ScheduleSnapshot, int64) {
	snapshot, ok := api.Schedule.Get()
	if !ok {
		return nil, 0
	}
	return snapshot, snapshot.CreatedAt.Unix()
}

// feedSnapshot returns the current feed and its header timestamp, zero when
// no feed has been decoded yet.
func (api *RestAPI) feedSnapshot() (*gtfs.FeedSnapshot, int64) {
	snapshot, ok := api.Feed.Get()
	if !ok {
		return nil, 0
	}
	return snapshot, snapshot.Timestamp
}
