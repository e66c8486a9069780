package gtfs

import (
	"sort"
	"time"

	"github.com/tidwall/rtree"

	"zetlive.dev/internal/utils"
	"zetlive.dev/internal/wire"
)

// ScheduleSnapshot is an immutable bundle of one parsed schedule. Nothing in
// it is mutated after construction; readers share the handle until the next
// publication replaces it.
type ScheduleSnapshot struct {
	Routes    map[string]*Route
	Stops     map[string]*Stop
	Trips     map[string]*Trip
	Shapes    map[string][]Point
	CreatedAt time.Time

	stopIndex rtree.RTreeG[*Stop]
}

// NewScheduleSnapshot freezes the given collections into a snapshot and
// builds the stop spatial index. Nil maps are normalized to empty ones.
func NewScheduleSnapshot(routes map[string]*Route, stops map[string]*Stop, trips map[string]*Trip, shapes map[string][]Point, createdAt time.Time) *ScheduleSnapshot {
	if routes == nil {
		routes = map[string]*Route{}
	}
	if stops == nil {
		stops = map[string]*Stop{}
	}
	if trips == nil {
		trips = map[string]*Trip{}
	}
	if shapes == nil {
		shapes = map[string][]Point{}
	}

	s := &ScheduleSnapshot{
		Routes:    routes,
		Stops:     stops,
		Trips:     trips,
		Shapes:    shapes,
		CreatedAt: createdAt,
	}
	for _, stop := range s.Stops {
		point := [2]float64{stop.Lon, stop.Lat}
		s.stopIndex.Insert(point, point, stop)
	}
	return s
}

func (s *ScheduleSnapshot) RouteByID(id string) (*Route, bool) {
	route, ok := s.Routes[id]
	return route, ok
}

func (s *ScheduleSnapshot) StopByID(id string) (*Stop, bool) {
	stop, ok := s.Stops[id]
	return stop, ok
}

func (s *ScheduleSnapshot) TripByID(id string) (*Trip, bool) {
	trip, ok := s.Trips[id]
	return trip, ok
}

func (s *ScheduleSnapshot) ShapeByID(id string) ([]Point, bool) {
	points, ok := s.Shapes[id]
	return points, ok
}

// Counts reports entity counts per collection, keyed the way the schedule
// entities gauge expects.
func (s *ScheduleSnapshot) Counts() map[string]int {
	return map[string]int{
		"routes": len(s.Routes),
		"stops":  len(s.Stops),
		"trips":  len(s.Trips),
		"shapes": len(s.Shapes),
	}
}

// SimpleStops projects all stops to compact [id, name, lat, lon] tuples,
// sorted by stop id.
func (s *ScheduleSnapshot) SimpleStops() []wire.SimpleStop {
	stops := make([]wire.SimpleStop, 0, len(s.Stops))
	for _, stop := range s.Stops {
		stops = append(stops, wire.SimpleStop{ID: stop.ID, Name: stop.Name, Lat: stop.Lat, Lon: stop.Lon})
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].ID < stops[j].ID })
	return stops
}

// StopTrips unions the trip lists of the given stops, preserving first-seen
// order and dropping duplicates. Unknown stop ids contribute nothing.
func (s *ScheduleSnapshot) StopTrips(stopIDs ...string) []string {
	seen := make(map[string]struct{})
	trips := []string{}
	for _, stopID := range stopIDs {
		stop, ok := s.Stops[stopID]
		if !ok {
			continue
		}
		for _, tripID := range stop.TripIDs {
			if _, dup := seen[tripID]; dup {
				continue
			}
			seen[tripID] = struct{}{}
			trips = append(trips, tripID)
		}
	}
	return trips
}

// ActiveStopIDs returns the ids of stops served by at least one trip in
// live, sorted ascending. Each stop's own trip list is the smaller side of
// the membership test.
func (s *ScheduleSnapshot) ActiveStopIDs(live map[string]struct{}) []string {
	active := []string{}
	if len(live) == 0 {
		return active
	}
	for id, stop := range s.Stops {
		for _, tripID := range stop.TripIDs {
			if _, ok := live[tripID]; ok {
				active = append(active, id)
				break
			}
		}
	}
	sort.Strings(active)
	return active
}

// StopsNear returns stops within radius meters of (lat, lon) as compact
// tuples, nearest first. The spatial index narrows candidates to a bounding
// box, exact distance filters the rest.
func (s *ScheduleSnapshot) StopsNear(lat, lon, radius float64) []wire.SimpleStop {
	bounds := utils.CalculateBounds(lat, lon, radius)

	type hit struct {
		stop     *Stop
		distance float64
	}
	var hits []hit
	s.stopIndex.Search(
		[2]float64{bounds.MinLon, bounds.MinLat},
		[2]float64{bounds.MaxLon, bounds.MaxLat},
		func(_, _ [2]float64, stop *Stop) bool {
			d := utils.Distance(lat, lon, stop.Lat, stop.Lon)
			if d <= radius {
				hits = append(hits, hit{stop: stop, distance: d})
			}
			return true
		})

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].stop.ID < hits[j].stop.ID
	})

	stops := make([]wire.SimpleStop, len(hits))
	for i, h := range hits {
		stops[i] = wire.SimpleStop{ID: h.stop.ID, Name: h.stop.Name, Lat: h.stop.Lat, Lon: h.stop.Lon}
	}
	return stops
}

// TripPath returns the trip's drawable path as (lon, lat) pairs: the trip's
// shape when it has one, otherwise the ordered stop coordinates.
func (s *ScheduleSnapshot) TripPath(trip *Trip) [][2]float64 {
	if trip.ShapeID != "" {
		if points, ok := s.Shapes[trip.ShapeID]; ok && len(points) > 0 {
			path := make([][2]float64, len(points))
			for i, p := range points {
				path[i] = [2]float64{p.Lon, p.Lat}
			}
			return path
		}
	}
	path := make([][2]float64, 0, len(trip.StopIDs))
	for _, stopID := range trip.StopIDs {
		if stop, ok := s.Stops[stopID]; ok {
			path = append(path, [2]float64{stop.Lon, stop.Lat})
		}
	}
	return path
}
