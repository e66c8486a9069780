package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Kind names a broadcast variant. The value doubles as the union's external
// tag on the wire.
type Kind string

const (
	KindVehicles    Kind = "vehicles"
	KindActiveStops Kind = "activeStops"
)

// ErrNoVariant is returned when marshalling a zero-value Broadcast.
var ErrNoVariant = errors.New("broadcast has no variant set")

// Broadcast is the externally tagged union sent to subscribers: exactly one
// variant is present, keyed by its Kind. Empty lists stay present on the wire
// ({"vehicles": []}), they are never dropped.
type Broadcast struct {
	kind        Kind
	vehicles    []Vehicle
	activeStops []string
}

// Vehicles builds the vehicles variant. A nil slice is normalized to empty.
func Vehicles(vs []Vehicle) Broadcast {
	if vs == nil {
		vs = []Vehicle{}
	}
	return Broadcast{kind: KindVehicles, vehicles: vs}
}

// ActiveStops builds the active-stops variant. A nil slice is normalized to
// empty.
func ActiveStops(ids []string) Broadcast {
	if ids == nil {
		ids = []string{}
	}
	return Broadcast{kind: KindActiveStops, activeStops: ids}
}

func (b Broadcast) Kind() Kind { return b.kind }

// Vehicles returns the vehicles variant's payload, nil for other variants.
func (b Broadcast) Vehicles() []Vehicle { return b.vehicles }

// ActiveStops returns the active-stops variant's payload, nil for other
// variants.
func (b Broadcast) ActiveStops() []string { return b.activeStops }

func (b Broadcast) MarshalJSON() ([]byte, error) {
	switch b.kind {
	case KindVehicles:
		return json.Marshal(map[string][]Vehicle{string(KindVehicles): b.vehicles})
	case KindActiveStops:
		return json.Marshal(map[string][]string{string(KindActiveStops): b.activeStops})
	default:
		return nil, ErrNoVariant
	}
}

func (b *Broadcast) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return b.setFromKeyed(len(m),
		func(k Kind, v any) (bool, error) {
			raw, ok := m[string(k)]
			if !ok {
				return false, nil
			}
			return true, json.Unmarshal(raw, v)
		})
}

func (b Broadcast) MarshalCBOR() ([]byte, error) {
	switch b.kind {
	case KindVehicles:
		return encMode.Marshal(map[string][]Vehicle{string(KindVehicles): b.vehicles})
	case KindActiveStops:
		return encMode.Marshal(map[string][]string{string(KindActiveStops): b.activeStops})
	default:
		return nil, ErrNoVariant
	}
}

func (b *Broadcast) UnmarshalCBOR(data []byte) error {
	var m map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &m); err != nil {
		return err
	}
	return b.setFromKeyed(len(m),
		func(k Kind, v any) (bool, error) {
			raw, ok := m[string(k)]
			if !ok {
				return false, nil
			}
			return true, decMode.Unmarshal(raw, v)
		})
}

// setFromKeyed decodes the single-variant map common to both codecs. lookup
// reports whether the kind's key is present and decodes its value into v.
func (b *Broadcast) setFromKeyed(keys int, lookup func(k Kind, v any) (bool, error)) error {
	if keys != 1 {
		return fmt.Errorf("broadcast: expected exactly one variant key, got %d", keys)
	}
	var vs []Vehicle
	if ok, err := lookup(KindVehicles, &vs); ok || err != nil {
		if err != nil {
			return fmt.Errorf("broadcast %s: %w", KindVehicles, err)
		}
		*b = Vehicles(vs)
		return nil
	}
	var ids []string
	if ok, err := lookup(KindActiveStops, &ids); ok || err != nil {
		if err != nil {
			return fmt.Errorf("broadcast %s: %w", KindActiveStops, err)
		}
		*b = ActiveStops(ids)
		return nil
	}
	return errors.New("broadcast: unknown variant key")
}
