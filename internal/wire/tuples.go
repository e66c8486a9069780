package wire

import (
	"encoding/json"
	"fmt"
)

// Vehicle is the compact broadcast form of one live vehicle. It encodes as
// the positional sequence [id, route_id, trip_id, lat, lon] in both JSON and
// CBOR to keep high-frequency frames small.
type Vehicle struct {
	_       struct{} `cbor:",toarray"`
	ID      string
	RouteID string
	TripID  string
	Lat     float64
	Lon     float64
}

func (v Vehicle) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{v.ID, v.RouteID, v.TripID, v.Lat, v.Lon})
}

func (v *Vehicle) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 5 {
		return fmt.Errorf("vehicle tuple: expected 5 elements, got %d", len(parts))
	}
	targets := []any{&v.ID, &v.RouteID, &v.TripID, &v.Lat, &v.Lon}
	for i, raw := range parts {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("vehicle tuple element %d: %w", i, err)
		}
	}
	return nil
}

// SimpleStop is the compact projection of one scheduled stop, encoded as
// [id, name, lat, lon].
type SimpleStop struct {
	_    struct{} `cbor:",toarray"`
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

func (s SimpleStop) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.ID, s.Name, s.Lat, s.Lon})
}

func (s *SimpleStop) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 4 {
		return fmt.Errorf("simple stop tuple: expected 4 elements, got %d", len(parts))
	}
	targets := []any{&s.ID, &s.Name, &s.Lat, &s.Lon}
	for i, raw := range parts {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("simple stop tuple element %d: %w", i, err)
		}
	}
	return nil
}
