// Package serializer turns relay envelopes (common.Message) into frame payloads and back.
// Client and server must be configured with the same serializer.
//
// Available implementations (see New and Names):
//
//   - json: the reference wire format. Field names are snake_case, the message type and
//     message kind are encoded as their names. Human-readable and easy to inspect.
//
//   - binary: custom flag-based format that encodes only present fields. Smallest
//     payloads and fastest, recommended when both sides are this relay.
//
//   - cbor: RFC 8949 encoding (fxamacker/cbor) using the json field names.
//
//   - msgpack: MessagePack encoding (ugorji/go/codec) using the json field names.
//
//   - gob: Go's gob encoding, only useful between Go peers.
//
// Thread Safety:
//
//	All serializer implementations are safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.New("json")
//	data, err := s.Serialize(message)
//	// ... send data ...
//	var received common.Message
//	err = s.Deserialize(receivedData, &received)
package serializer
