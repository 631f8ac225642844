package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	1 byte  MsgType
//	2 bytes flags (big endian, one bit per present field)
//	fields in the order of the flags below
//
// strings and byte slices are prefixed with a uint32 length, lists with a uint32 count
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasClientID   uint16 = 1 << 0
	hasGroupID    uint16 = 1 << 1
	hasCreatorID  uint16 = 1 << 2
	hasSenderID   uint16 = 1 << 3
	hasBundle     uint16 = 1 << 4
	hasPayload    uint16 = 1 << 5
	hasKind       uint16 = 1 << 6
	hasOffset     uint16 = 1 << 7
	hasLimit      uint16 = 1 << 8
	hasTotal      uint16 = 1 << 9
	hasMembers    uint16 = 1 << 10
	hasIdentities uint16 = 1 << 11
	hasEntries    uint16 = 1 << 12
	hasOk         uint16 = 1 << 13
	hasDetail     uint16 = 1 << 14
	hasCode       uint16 = 1 << 15
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var flags uint16
	out := make([]byte, headerSize, headerSize+b.sizeBytes(msg))
	out[0] = byte(msg.MsgType)

	if msg.ClientID != "" {
		flags |= hasClientID
		out = appendString(out, msg.ClientID)
	}
	if msg.GroupID != "" {
		flags |= hasGroupID
		out = appendString(out, msg.GroupID)
	}
	if msg.CreatorID != "" {
		flags |= hasCreatorID
		out = appendString(out, msg.CreatorID)
	}
	if msg.SenderID != "" {
		flags |= hasSenderID
		out = appendString(out, msg.SenderID)
	}
	if msg.Bundle != nil {
		flags |= hasBundle
		out = appendBytes(out, msg.Bundle)
	}
	if msg.Payload != nil {
		flags |= hasPayload
		out = appendBytes(out, msg.Payload)
	}
	if msg.Kind != store.KindUnknown {
		flags |= hasKind
		out = append(out, byte(msg.Kind))
	}
	if msg.Offset > 0 {
		flags |= hasOffset
		out = binary.BigEndian.AppendUint64(out, msg.Offset)
	}
	if msg.Limit > 0 {
		flags |= hasLimit
		out = binary.BigEndian.AppendUint64(out, msg.Limit)
	}
	if msg.Total > 0 {
		flags |= hasTotal
		out = binary.BigEndian.AppendUint64(out, msg.Total)
	}
	if msg.Members != nil {
		flags |= hasMembers
		out = appendStrings(out, msg.Members)
	}
	if msg.Identities != nil {
		flags |= hasIdentities
		out = appendStrings(out, msg.Identities)
	}
	if msg.Entries != nil {
		flags |= hasEntries
		out = binary.BigEndian.AppendUint32(out, uint32(len(msg.Entries)))
		for _, e := range msg.Entries {
			out = appendString(out, e.SenderID)
			out = appendBytes(out, e.Payload)
			out = append(out, byte(e.Kind))
		}
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Detail != "" {
		flags |= hasDetail
		out = appendString(out, msg.Detail)
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		out = binary.BigEndian.AppendUint64(out, uint64(msg.Code))
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(out[1:3], flags)

	return out, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:3])
	r := reader{data: data, pos: headerSize}

	if flags&hasClientID != 0 {
		msg.ClientID = r.string("client id")
	}
	if flags&hasGroupID != 0 {
		msg.GroupID = r.string("group id")
	}
	if flags&hasCreatorID != 0 {
		msg.CreatorID = r.string("creator id")
	}
	if flags&hasSenderID != 0 {
		msg.SenderID = r.string("sender id")
	}
	if flags&hasBundle != 0 {
		msg.Bundle = r.bytes("bundle")
	}
	if flags&hasPayload != 0 {
		msg.Payload = r.bytes("payload")
	}
	if flags&hasKind != 0 {
		msg.Kind = store.MessageKind(r.byte("kind"))
	}
	if flags&hasOffset != 0 {
		msg.Offset = r.uint64("offset")
	}
	if flags&hasLimit != 0 {
		msg.Limit = r.uint64("limit")
	}
	if flags&hasTotal != 0 {
		msg.Total = r.uint64("total")
	}
	if flags&hasMembers != 0 {
		msg.Members = r.strings("members")
	}
	if flags&hasIdentities != 0 {
		msg.Identities = r.strings("identities")
	}
	if flags&hasEntries != 0 {
		n := r.count("entries")
		msg.Entries = make([]store.LogEntry, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			msg.Entries = append(msg.Entries, store.LogEntry{
				SenderID: r.string("entry sender"),
				Payload:  r.bytes("entry payload"),
				Kind:     store.MessageKind(r.byte("entry kind")),
			})
		}
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasDetail != 0 {
		msg.Detail = r.string("detail")
	}
	if flags&hasCode != 0 {
		msg.Code = store.RetCode(r.uint64("code"))
	}

	if r.err != nil {
		return r.err
	}
	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the size of all fields (without header) for preallocation
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 0
	for _, s := range []string{msg.ClientID, msg.GroupID, msg.CreatorID, msg.SenderID, msg.Detail} {
		if s != "" {
			size += 4 + len(s)
		}
	}
	if msg.Bundle != nil {
		size += 4 + len(msg.Bundle)
	}
	if msg.Payload != nil {
		size += 4 + len(msg.Payload)
	}
	size += 1 + 8*4 // kind, offset, limit, total, code
	for _, list := range [][]string{msg.Members, msg.Identities} {
		size += 4
		for _, s := range list {
			size += 4 + len(s)
		}
	}
	if msg.Entries != nil {
		size += 4
		for _, e := range msg.Entries {
			size += 4 + len(e.SenderID) + 4 + len(e.Payload) + 1
		}
	}
	return size
}

func appendString(out []byte, s string) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(s)))
	return append(out, s...)
}

func appendBytes(out []byte, b []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}

func appendStrings(out []byte, list []string) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(list)))
	for _, s := range list {
		out = appendString(out, s)
	}
	return out
}

// reader reads fields sequentially. The first error sticks, all later reads return zero values.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) byte(field string) byte {
	b := r.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint64(field string) uint64 {
	b := r.take(8, field)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) count(field string) int {
	b := r.take(4, field+" length")
	if b == nil {
		return 0
	}
	n := int(binary.BigEndian.Uint32(b))
	// every element needs at least one byte, reject counts that cannot fit
	if n > len(r.data)-r.pos {
		r.err = fmt.Errorf("data too short for %s", field)
		return 0
	}
	return n
}

func (r *reader) bytes(field string) []byte {
	b := r.take(r.count(field), field)
	if r.err != nil {
		return nil
	}
	// always return a fresh non-nil slice, the input buffer is reused by the transport
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *reader) string(field string) string {
	return string(r.take(r.count(field), field))
}

func (r *reader) strings(field string) []string {
	n := r.count(field)
	list := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		list = append(list, r.string(field))
	}
	return list
}
