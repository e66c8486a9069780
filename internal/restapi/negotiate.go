package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"zetlive.dev/internal/wire"
)

// The API speaks JSON and CBOR. CBOR responses use the same encoding profile
// as the websocket broadcasts, so a client can share one decoder.
const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

var errNotAcceptable = errors.New("no acceptable encoding")

type encoding int

const (
	encodingJSON encoding = iota
	encodingCBOR
)

func (e encoding) contentType() string {
	if e == encodingCBOR {
		return contentTypeCBOR
	}
	return contentTypeJSON
}

func (e encoding) marshal(v any) ([]byte, error) {
	if e == encodingCBOR {
		return wire.MarshalCBOR(v)
	}
	return json.Marshal(v)
}

// negotiateEncoding picks the response encoding from the Accept header. The
// header's media ranges are scanned in written order and the first supported
// one decides; wildcards select JSON, as does a missing header. Quality
// parameters are ignored. When no range is supported the caller answers 406.
func negotiateEncoding(r *http.Request) (encoding, error) {
	header := r.Header.Get("Accept")
	if header == "" {
		return encodingJSON, nil
	}
	for _, part := range strings.Split(header, ",") {
		mediaRange := strings.TrimSpace(part)
		if i := strings.IndexByte(mediaRange, ';'); i >= 0 {
			mediaRange = strings.TrimSpace(mediaRange[:i])
		}
		switch strings.ToLower(mediaRange) {
		case contentTypeJSON, "application/*", "*/*":
			return encodingJSON, nil
		case contentTypeCBOR:
			return encodingCBOR, nil
		}
	}
	return encodingJSON, errNotAcceptable
}
