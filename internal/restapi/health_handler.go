package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"zetlive.dev/internal/logging"
)

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Feed          HealthFeed     `json:"feed"`
	Schedule      HealthSchedule `json:"schedule"`
}

// HealthFeed reports whether a realtime feed has been decoded and its
// header timestamp.
type HealthFeed struct {
	Present bool  `json:"present"`
	Ts      int64 `json:"ts"`
}

// HealthSchedule reports whether a schedule is loaded, when it was built and
// its per-collection entity counts.
type HealthSchedule struct {
	Present   bool           `json:"present"`
	CreatedAt string         `json:"created_at,omitempty"`
	Counts    map[string]int `json:"counts,omitempty"`
}

// healthHandler reports process liveness and data freshness. It always
// answers 200: startup blocks the listener until both stores have published,
// so a reachable listener is a ready one. The body tells operators what data
// the instance is serving.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "ok",
		UptimeSeconds: api.Uptime().Seconds(),
	}

	if feed, ok := api.Feed.Get(); ok {
		response.Feed = HealthFeed{Present: true, Ts: feed.Timestamp}
	}
	if schedule, ok := api.Schedule.Get(); ok {
		response.Schedule = HealthSchedule{
			Present:   true,
			CreatedAt: schedule.CreatedAt.UTC().Format(time.RFC3339),
			Counts:    schedule.Counts(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.Logger, "Error encoding health response", err)
	}
}
