package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/ugorji/go/codec"
)

// factories maps the name used in configuration to a serializer factory
var factories = map[string]func() IRPCSerializer{
	"json":    NewJSONSerializer,
	"gob":     NewGOBSerializer,
	"binary":  NewBinarySerializer,
	"cbor":    NewCBORSerializer,
	"msgpack": NewMsgpackSerializer,
}

// New returns the serializer registered under name
func New(name string) (IRPCSerializer, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("invalid serializer %s (expected one of %v)", name, Names())
	}
	return f(), nil
}

// Names returns the names of all available serializers
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return json.Unmarshal(b, msg)
}

// --------------------------------------------------------------------------
// GOB
// --------------------------------------------------------------------------

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

type gobSerializerImpl struct{}

func (g gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(msg)
}

// --------------------------------------------------------------------------
// CBOR
// --------------------------------------------------------------------------

// NewCBORSerializer creates a new serializer using CBOR (RFC 8949).
// Field names follow the json tags of common.Message.
func NewCBORSerializer() IRPCSerializer {
	return &cborSerializerImpl{}
}

type cborSerializerImpl struct{}

func (c cborSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return cbor.Marshal(msg)
}

func (c cborSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return cbor.Unmarshal(b, msg)
}

// --------------------------------------------------------------------------
// MessagePack
// --------------------------------------------------------------------------

// NewMsgpackSerializer creates a new serializer using MessagePack
func NewMsgpackSerializer() IRPCSerializer {
	h := &codec.MsgpackHandle{}
	// encode []byte as bin instead of str
	h.WriteExt = true
	return &msgpackSerializerImpl{handle: h}
}

// msgpackSerializerImpl is safe for concurrent use, the handle is never modified after creation
type msgpackSerializerImpl struct {
	handle *codec.MsgpackHandle
}

func (m msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, m.handle).Encode(msg); err != nil {
		return nil, err
	}
	return out, nil
}

func (m msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return codec.NewDecoderBytes(b, m.handle).Decode(msg)
}
