// Package serializer provides the body codecs of the dDoc HTTP protocol. It
// defines a common interface and multiple implementations for serializing and
// deserializing the request and response bodies exchanged between client and
// server.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//     ContentType names the media type sent with the body.
//
//   - jsonSerializerImpl: JSON via json-iterator, compatible with encoding/json.
//     This is the default and the only codec most HTTP tooling understands.
//
//   - msgpackSerializerImpl: MessagePack, the most compact of the three.
//
//   - gobSerializerImpl: Go's built-in gob encoding, only usable between Go peers.
//
// The server picks the codec from the request Content-Type (see ByContentType)
// and answers with the same codec. Clients pick one by name (see ByName).
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.ByName("msgpack")
//	data, err := s.Serialize(common.NextRangeRequest{Tag: "users", Capacity: 32})
//	// ... send data with Content-Type s.ContentType() ...
//	var resp common.NextRangeResponse
//	err = s.Deserialize(receivedData, &resp)
package serializer
