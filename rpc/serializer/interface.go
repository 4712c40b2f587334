package serializer

import (
	"fmt"
	"strings"
)

// IRPCSerializer is the interface for all body serializers
type IRPCSerializer interface {
	// Serialize serializes a value into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(v any) ([]byte, error)
	// Deserialize deserializes a byte array into the value pointed to by v
	// It returns an error if any
	Deserialize(b []byte, v any) error
	// ContentType is the media type sent in the Content-Type header
	ContentType() string
}

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
	ContentTypeGOB     = "application/x-gob"
)

// ByName returns the serializer for one of the names json, msgpack or gob
func ByName(name string) (IRPCSerializer, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return NewJSONSerializer(), nil
	case "msgpack":
		return NewMsgpackSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q: must be one of json, msgpack, gob", name)
	}
}

// ByContentType returns the serializer for a Content-Type header value.
// Parameters like charset are ignored, an empty value selects json.
func ByContentType(contentType string) (IRPCSerializer, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "", ContentTypeJSON:
		return NewJSONSerializer(), true
	case ContentTypeMsgpack, "application/x-msgpack":
		return NewMsgpackSerializer(), true
	case ContentTypeGOB:
		return NewGOBSerializer(), true
	default:
		return nil, false
	}
}
