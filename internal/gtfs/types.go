// Package gtfs holds the transit domain model: the static schedule snapshot
// with its joined lookups, the decoded realtime feed, the latest-value stores
// and the manager that keeps both fed from upstream.
package gtfs

import (
	"time"
)

// Default route colors applied when the schedule omits them.
const (
	DefaultRouteColor     = "FFFFFF"
	DefaultRouteTextColor = "000000"
)

// Route is one scheduled route.
type Route struct {
	ID        string `json:"id" cbor:"id"`
	ShortName string `json:"short_name" cbor:"short_name"`
	LongName  string `json:"long_name" cbor:"long_name"`
	Type      int    `json:"type" cbor:"type"`
	Color     string `json:"color" cbor:"color"`
	TextColor string `json:"text_color" cbor:"text_color"`
}

// Stop is one scheduled stop. TripIDs is the inverse join built from
// stop_times: every trip that stops here, in first-visit order.
type Stop struct {
	ID                 string   `json:"id" cbor:"id"`
	Name               string   `json:"name" cbor:"name"`
	Lat                float64  `json:"lat" cbor:"lat"`
	Lon                float64  `json:"lon" cbor:"lon"`
	ParentStation      string   `json:"parent_station,omitempty" cbor:"parent_station,omitempty"`
	LocationType       int      `json:"location_type" cbor:"location_type"`
	WheelchairBoarding int      `json:"wheelchair_boarding" cbor:"wheelchair_boarding"`
	TripIDs            []string `json:"trip_ids" cbor:"trip_ids"`
}

// Trip is one scheduled trip. StopIDs is the stop sequence in stop_sequence
// order; a loop trip may visit the same stop more than once.
type Trip struct {
	ID          string   `json:"id" cbor:"id"`
	RouteID     string   `json:"route_id" cbor:"route_id"`
	ServiceID   string   `json:"service_id" cbor:"service_id"`
	Headsign    string   `json:"headsign" cbor:"headsign"`
	DirectionID int      `json:"direction_id" cbor:"direction_id"`
	ShapeID     string   `json:"shape_id,omitempty" cbor:"shape_id,omitempty"`
	StopIDs     []string `json:"stop_ids" cbor:"stop_ids"`
}

// Point is one (lat, lon) coordinate of a shape.
type Point struct {
	Lat float64 `json:"lat" cbor:"lat"`
	Lon float64 `json:"lon" cbor:"lon"`
}

// Vehicle is one live vehicle with its schedule linkage, in long form.
// All three ids are non-empty by construction.
type Vehicle struct {
	ID      string  `json:"id" cbor:"id"`
	RouteID string  `json:"route_id" cbor:"route_id"`
	TripID  string  `json:"trip_id" cbor:"trip_id"`
	Lat     float64 `json:"lat" cbor:"lat"`
	Lon     float64 `json:"lon" cbor:"lon"`
}

// VehicleRef identifies the physical unit reported by a feed entity.
type VehicleRef struct {
	ID    string `json:"id" cbor:"id"`
	Label string `json:"label,omitempty" cbor:"label,omitempty"`
}

// TripRef links a feed entity to the schedule.
type TripRef struct {
	TripID  string `json:"trip_id" cbor:"trip_id"`
	RouteID string `json:"route_id" cbor:"route_id"`
}

// Position is a reported vehicle position.
type Position struct {
	Lat float64 `json:"lat" cbor:"lat"`
	Lon float64 `json:"lon" cbor:"lon"`
}

// FeedEntity is one realtime feed entity in domain form. Subfields the
// upstream message omits stay nil.
type FeedEntity struct {
	ID       string      `json:"id" cbor:"id"`
	Vehicle  *VehicleRef `json:"vehicle,omitempty" cbor:"vehicle,omitempty"`
	Trip     *TripRef    `json:"trip,omitempty" cbor:"trip,omitempty"`
	Position *Position   `json:"position,omitempty" cbor:"position,omitempty"`
}

// complete reports whether the entity carries everything a Vehicle needs.
func (e *FeedEntity) complete() bool {
	return e.Vehicle != nil && e.Trip != nil && e.Position != nil &&
		e.Vehicle.ID != "" && e.Trip.TripID != "" && e.Trip.RouteID != ""
}

// FeedSnapshot is one decoded realtime feed. Immutable once published.
type FeedSnapshot struct {
	// Timestamp is the feed header time in seconds since epoch.
	Timestamp int64        `json:"timestamp" cbor:"timestamp"`
	Entities  []FeedEntity `json:"entities" cbor:"entities"`

	fetchedAt time.Time
}

// Vehicles projects the snapshot's complete entities into Vehicle records.
// Entities missing any of vehicle, trip or position are dropped.
func (s *FeedSnapshot) Vehicles() []Vehicle {
	vehicles := make([]Vehicle, 0, len(s.Entities))
	for i := range s.Entities {
		e := &s.Entities[i]
		if !e.complete() {
			continue
		}
		vehicles = append(vehicles, Vehicle{
			ID:      e.Vehicle.ID,
			RouteID: e.Trip.RouteID,
			TripID:  e.Trip.TripID,
			Lat:     e.Position.Lat,
			Lon:     e.Position.Lon,
		})
	}
	return vehicles
}

// LiveTripIDs is the set of trip ids currently claimed by a complete entity.
func (s *FeedSnapshot) LiveTripIDs() map[string]struct{} {
	trips := make(map[string]struct{}, len(s.Entities))
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.complete() {
			trips[e.Trip.TripID] = struct{}{}
		}
	}
	return trips
}

// FetchedAt is the local receive time of the snapshot.
func (s *FeedSnapshot) FetchedAt() time.Time {
	return s.fetchedAt
}
