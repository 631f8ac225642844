package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/mlsrelay/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single envelope used for both requests and responses.
// MsgType is the discriminant, which fields are used depends on it.
type Message struct {
	// Type of message
	MsgType MessageType `json:"type"`

	// Identity fields
	ClientID  string `json:"client_id,omitempty"`  // Used for: StoreBundle, FetchBundle, JoinGroup, FetchMessages, BundleResult
	GroupID   string `json:"group_id,omitempty"`   // Used for: CreateGroup, JoinGroup, RelayMessage, FetchGroup, FetchMessages, GroupResult, MessageList
	CreatorID string `json:"creator_id,omitempty"` // Used for: CreateGroup, GroupResult
	SenderID  string `json:"sender_id,omitempty"`  // Used for: RelayMessage

	// Opaque data
	Bundle  []byte            `json:"bundle,omitempty"`  // Used for: StoreBundle, BundleResult
	Payload []byte            `json:"payload,omitempty"` // Used for: RelayMessage
	Kind    store.MessageKind `json:"kind,omitempty"`    // Used for: RelayMessage

	// Log window
	Offset uint64 `json:"offset,omitempty"` // Used for: FetchMessages, MessageList, GroupResult (log length)
	Limit  uint64 `json:"limit,omitempty"`  // Used for: FetchMessages
	Total  uint64 `json:"total,omitempty"`  // Used for: MessageList

	// Response only fields
	Members    []string         `json:"members,omitempty"`    // Used for: GroupResult
	Identities []string         `json:"identities,omitempty"` // Used for: BundleList
	Entries    []store.LogEntry `json:"entries,omitempty"`    // Used for: MessageList
	Ok         bool             `json:"ok"`                   // Ack success, BundleResult found marker
	Detail     string           `json:"detail,omitempty"`     // Ack, Error
	Code       store.RetCode    `json:"code,omitempty"`       // Error
}

// IsRequest reports whether the message is one a client may send to the server.
func (m *Message) IsRequest() bool {
	return m.MsgType.IsRequest()
}

// Err converts an Error envelope back into a typed store error.
// It returns nil for every other message type.
func (m *Message) Err() error {
	if m.MsgType != MsgTError {
		return nil
	}
	code := m.Code
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Detail)
}

// --------------------------------------------------------------------------
// Message Factory Functions (requests)
// --------------------------------------------------------------------------

// NewStoreBundleRequest creates a new StoreBundle request
func NewStoreBundleRequest(clientID string, bundle []byte) *Message {
	return &Message{
		MsgType:  MsgTStoreBundle,
		ClientID: clientID,
		Bundle:   bundle,
	}
}

// NewFetchBundleRequest creates a new FetchBundle request
func NewFetchBundleRequest(clientID string) *Message {
	return &Message{
		MsgType:  MsgTFetchBundle,
		ClientID: clientID,
	}
}

// NewListBundlesRequest creates a new ListBundles request
func NewListBundlesRequest() *Message {
	return &Message{MsgType: MsgTListBundles}
}

// NewCreateGroupRequest creates a new CreateGroup request
func NewCreateGroupRequest(groupID, creatorID string) *Message {
	return &Message{
		MsgType:   MsgTCreateGroup,
		GroupID:   groupID,
		CreatorID: creatorID,
	}
}

// NewJoinGroupRequest creates a new JoinGroup request
func NewJoinGroupRequest(groupID, clientID string) *Message {
	return &Message{
		MsgType:  MsgTJoinGroup,
		GroupID:  groupID,
		ClientID: clientID,
	}
}

// NewRelayMessageRequest creates a new RelayMessage request
func NewRelayMessageRequest(groupID, senderID string, payload []byte, kind store.MessageKind) *Message {
	return &Message{
		MsgType:  MsgTRelayMessage,
		GroupID:  groupID,
		SenderID: senderID,
		Payload:  payload,
		Kind:     kind,
	}
}

// NewFetchGroupRequest creates a new FetchGroup request
func NewFetchGroupRequest(groupID string) *Message {
	return &Message{
		MsgType: MsgTFetchGroup,
		GroupID: groupID,
	}
}

// NewFetchMessagesRequest creates a new FetchMessages request
func NewFetchMessagesRequest(groupID, clientID string, offset, limit uint64) *Message {
	return &Message{
		MsgType:  MsgTFetchMessages,
		GroupID:  groupID,
		ClientID: clientID,
		Offset:   offset,
		Limit:    limit,
	}
}

// --------------------------------------------------------------------------
// Message Factory Functions (responses)
// --------------------------------------------------------------------------

// NewBundleResult creates a BundleResult. A missing bundle is marked with ok=false.
func NewBundleResult(clientID string, bundle []byte, found bool) *Message {
	return &Message{
		MsgType:  MsgTBundleResult,
		ClientID: clientID,
		Bundle:   bundle,
		Ok:       found,
	}
}

// NewBundleList creates a BundleList response
func NewBundleList(identities []string) *Message {
	return &Message{
		MsgType:    MsgTBundleList,
		Identities: identities,
	}
}

// NewGroupResult creates a GroupResult response from a group snapshot
func NewGroupResult(group store.GroupRecord) *Message {
	return &Message{
		MsgType:   MsgTGroupResult,
		GroupID:   group.GroupID,
		CreatorID: group.Creator,
		Members:   group.Members,
		Offset:    group.Messages,
	}
}

// NewMessageList creates a MessageList response
func NewMessageList(groupID string, offset, total uint64, entries []store.LogEntry) *Message {
	return &Message{
		MsgType: MsgTMessageList,
		GroupID: groupID,
		Offset:  offset,
		Total:   total,
		Entries: entries,
	}
}

// NewAck creates an Ack response
func NewAck(success bool, detail string) *Message {
	return &Message{
		MsgType: MsgTAck,
		Ok:      success,
		Detail:  detail,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, detail string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Detail:  detail,
	}
}

// NewErrorResponseFromErr creates an Error response for err. Store errors keep their
// return code, everything else is reported as an internal error.
func NewErrorResponseFromErr(prefix string, err error) *Message {
	var se *store.Error
	if errors.As(err, &se) {
		return NewErrorResponse(se.Code, fmt.Sprintf("%s: %s", prefix, se.Msg))
	}
	return NewErrorResponse(store.RetCInternalError, fmt.Sprintf("%s: %v", prefix, err))
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType is the discriminant of a Message.
type MessageType uint8

// messageTypeNames is the wire name of every known message type
var messageTypeNames = map[MessageType]string{
	MsgTStoreBundle:   "StoreBundle",
	MsgTFetchBundle:   "FetchBundle",
	MsgTListBundles:   "ListBundles",
	MsgTCreateGroup:   "CreateGroup",
	MsgTJoinGroup:     "JoinGroup",
	MsgTRelayMessage:  "RelayMessage",
	MsgTFetchGroup:    "FetchGroup",
	MsgTFetchMessages: "FetchMessages",
	MsgTBundleResult:  "BundleResult",
	MsgTBundleList:    "BundleList",
	MsgTGroupResult:   "GroupResult",
	MsgTMessageList:   "MessageList",
	MsgTAck:           "Ack",
	MsgTError:         "Error",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsRequest reports whether t is a request kind.
func (t MessageType) IsRequest() bool {
	return t >= MsgTStoreBundle && t <= MsgTFetchMessages
}

// IsResponse reports whether t is a response kind.
func (t MessageType) IsResponse() bool {
	return t >= MsgTBundleResult && t <= MsgTError
}

// ParseMessageType converts a wire name back to a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	for t, name := range messageTypeNames {
		if name == s {
			return t, nil
		}
	}
	return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// Unknown names are a decoding error.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mt, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = mt
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota

	// Requests

	MsgTStoreBundle   // Publish or overwrite a key bundle
	MsgTFetchBundle   // Read the key bundle of a client
	MsgTListBundles   // List all identities with a bundle
	MsgTCreateGroup   // Register a new group
	MsgTJoinGroup     // Add a member to a group
	MsgTRelayMessage  // Append a message to the log of a group
	MsgTFetchGroup    // Read the members of a group
	MsgTFetchMessages // Read a window of the log of a group

	// Responses

	MsgTBundleResult // Bundle or absent marker
	MsgTBundleList   // Identities with a bundle
	MsgTGroupResult  // Group id and members
	MsgTMessageList  // Window of a group log
	MsgTAck          // Success acknowledgement
	MsgTError        // Any failure
)
