package restapi

import (
	"net/http"

	"github.com/twpayne/go-polyline"

	"zetlive.dev/internal/wire"
)

type polylinePayload struct {
	Polyline string `json:"polyline" cbor:"polyline"`
}

// shapeHandler serves one shape's ordered point list.
func (api *RestAPI) shapeHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	if snapshot == nil {
		api.sendNotFound(w, "shape")
		return
	}
	points, ok := snapshot.ShapeByID(r.PathValue("id"))
	if !ok {
		api.sendNotFound(w, "shape")
		return
	}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, points))
}

// shapePolylineHandler serves the same shape as a Google encoded polyline
// string, the form map libraries consume directly.
func (api *RestAPI) shapePolylineHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, ts := api.scheduleSnapshot()
	if snapshot == nil {
		api.sendNotFound(w, "shape")
		return
	}
	points, ok := snapshot.ShapeByID(r.PathValue("id"))
	if !ok {
		api.sendNotFound(w, "shape")
		return
	}

	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	payload := polylinePayload{Polyline: string(polyline.EncodeCoords(coords))}
	api.sendNegotiated(w, r, wire.NewVersioned(ts, payload))
}
