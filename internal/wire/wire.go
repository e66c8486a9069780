// Package wire defines the payload shapes shared by the broadcast pipeline
// and the REST surface: the Versioned envelope, the Broadcast union and the
// compact positional tuples, plus the CBOR profile used to encode them.
package wire

import (
	"github.com/fxamacker/cbor/v2"
)

// SchemaVersion is the current envelope version for all broadcast payloads.
const SchemaVersion = 1

// Versioned wraps a payload with its schema version and the timestamp of the
// source snapshot (seconds since epoch, zero when no snapshot exists yet).
type Versioned[T any] struct {
	V  int   `json:"v" cbor:"v"`
	Ts int64 `json:"ts" cbor:"ts"`
	D  T     `json:"d" cbor:"d"`
}

// NewVersioned wraps d in an envelope carrying the current SchemaVersion.
func NewVersioned[T any](ts int64, d T) Versioned[T] {
	return Versioned[T]{V: SchemaVersion, Ts: ts, D: d}
}

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// MarshalCBOR encodes v using the package's CBOR profile.
func MarshalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes data into v using the package's CBOR profile.
func UnmarshalCBOR(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

var (
	emptyVehiclesFrame    = mustMarshal(NewVersioned(0, Vehicles(nil)))
	emptyActiveStopsFrame = mustMarshal(NewVersioned(0, ActiveStops(nil)))
)

func mustMarshal(v any) []byte {
	b, err := encMode.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// EmptyVehiclesFrame is the encoded empty-vehicles envelope broadcast slots
// start with, so a subscriber always receives an initial vehicles frame.
func EmptyVehiclesFrame() []byte {
	return emptyVehiclesFrame
}

// EmptyActiveStopsFrame is the encoded empty-active-stops envelope broadcast
// slots start with.
func EmptyActiveStopsFrame() []byte {
	return emptyActiveStopsFrame
}
