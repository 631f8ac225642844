package serializer

import "github.com/ValentinKolb/mlsrelay/rpc/common"

// IRPCSerializer encodes envelopes into frame payloads. Implementations are safe
// for concurrent use, the server shares one instance across all connections.
type IRPCSerializer interface {
	// Serialize encodes msg, the result does not alias msg
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg. Byte fields of msg never alias b, the transport
	// reuses its read buffers.
	Deserialize(b []byte, msg *common.Message) error
}
