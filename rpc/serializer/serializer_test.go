package serializer

import (
	"github.com/ValentinKolb/dDoc/rpc/common"
	"reflect"
	"testing"
	"time"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":    NewJSONSerializer,
	"GOB":     NewGOBSerializer,
	"Msgpack": NewMsgpackSerializer,
}

var rangeAt = time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

// testMessages creates one value of every wire type, with and without optional fields
func testMessages() []any {
	return []any{
		&common.NextRangeRequest{Tag: "users", Capacity: 32, Separator: "/"},
		&common.NextRangeRequest{Tag: "users", Capacity: 64, LastMax: 32, LastToken: "17", LastRangeAt: rangeAt, Separator: "/"},
		&common.NextRangeResponse{Prefix: "users/", Low: 33, High: 96, Max: 96, Token: "18", ServerTag: "A", LastRangeAt: rangeAt},
		&common.ReturnRangeRequest{Tag: "users", Low: 35, High: 64, LastRangeAt: rangeAt},
		&common.HiloDocument{ID: "Raven/Hilo/users", Max: 64, Token: "4"},
		&common.Topology{Etag: 3, Nodes: []common.TopologyNode{{URL: "http://a:8080", ClusterTag: "A"}, {URL: "http://b:8080", ClusterTag: "B"}}},
		&common.ErrorResponse{Type: common.ErrTConflict, Message: "stale token", Max: 128, Token: "9"},
		&common.ErrorResponse{Type: common.ErrTNotFound, Message: "no such document"},
	}
}

// normalize drops time zone and monotonic clock details that codecs do not keep
func normalize(v any) any {
	switch m := v.(type) {
	case *common.NextRangeRequest:
		c := *m
		c.LastRangeAt = c.LastRangeAt.UTC()
		return &c
	case *common.NextRangeResponse:
		c := *m
		c.LastRangeAt = c.LastRangeAt.UTC()
		return &c
	case *common.ReturnRangeRequest:
		c := *m
		c.LastRangeAt = c.LastRangeAt.UTC()
		return &c
	case *common.HiloDocument:
		c := *m
		c.LastRangeAt = c.LastRangeAt.UTC()
		return &c
	}
	return v
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range testMessages() {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				result := reflect.New(reflect.TypeOf(msg).Elem()).Interface()
				if err := serializer.Deserialize(data, result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(normalize(msg), normalize(result)) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestErrorTypes tests each error type with each serializer
func TestErrorTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for errType := common.ErrTUnknown; errType <= common.ErrTInternal; errType++ {
				data, err := serializer.Serialize(&common.ErrorResponse{Type: errType, Message: "x"})
				if err != nil {
					t.Errorf("Failed to serialize error type %s: %v", errType, err)
					continue
				}

				var result common.ErrorResponse
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize error type %s: %v", errType, err)
					continue
				}

				if result.Type != errType {
					t.Errorf("Error type doesn't match after round trip: Expected %s, got %s", errType, result.Type)
				}
			}
		})
	}
}

// TestInvalidData tests that every serializer rejects corrupt input
func TestInvalidData(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var result common.NextRangeResponse
			if err := factory().Deserialize([]byte{0xc1, 0x00, 0xff}, &result); err == nil {
				t.Errorf("Expected error for corrupt data")
			}
		})
	}
}

func TestByName(t *testing.T) {
	for name, want := range map[string]string{
		"":        ContentTypeJSON,
		"JSON":    ContentTypeJSON,
		"msgpack": ContentTypeMsgpack,
		"gob":     ContentTypeGOB,
	} {
		s, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) error = %v", name, err)
		}
		if s.ContentType() != want {
			t.Errorf("ByName(%q).ContentType() = %s, want %s", name, s.ContentType(), want)
		}
	}

	if _, err := ByName("xml"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}

func TestByContentType(t *testing.T) {
	for contentType, want := range map[string]string{
		"":                                ContentTypeJSON,
		"application/json; charset=utf-8": ContentTypeJSON,
		"application/x-msgpack":           ContentTypeMsgpack,
		"Application/MsgPack":             ContentTypeMsgpack,
		"application/x-gob":               ContentTypeGOB,
	} {
		s, ok := ByContentType(contentType)
		if !ok {
			t.Fatalf("ByContentType(%q) not found", contentType)
		}
		if s.ContentType() != want {
			t.Errorf("ByContentType(%q) = %s, want %s", contentType, s.ContentType(), want)
		}
	}

	if _, ok := ByContentType("text/plain"); ok {
		t.Errorf("Expected text/plain to be rejected")
	}
}
