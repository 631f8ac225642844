package store

import (
	"encoding/json"
	"fmt"
	"slices"
)

// --------------------------------------------------------------------------
// Message Kind
// --------------------------------------------------------------------------

// MessageKind is the protocol level kind of a relayed message.
// The relay never interprets it, it is stored next to the payload.
type MessageKind uint8

const (
	KindUnknown     MessageKind = iota
	KindWelcome                 // Welcome message for new members
	KindAdd                     // Add proposal
	KindApplication             // Encrypted application data
	KindCommit                  // Commit of pending proposals
	KindProposal                // Any other proposal
)

// String returns the string representation of a MessageKind.
func (k MessageKind) String() string {
	switch k {
	case KindWelcome:
		return "Welcome"
	case KindAdd:
		return "Add"
	case KindApplication:
		return "Application"
	case KindCommit:
		return "Commit"
	case KindProposal:
		return "Proposal"
	default:
		return "Unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k MessageKind) Valid() bool {
	return k >= KindWelcome && k <= KindProposal
}

// ParseMessageKind converts the string representation back to a MessageKind.
func ParseMessageKind(s string) (MessageKind, error) {
	for k := KindWelcome; k <= KindProposal; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown message kind: %q", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageKind.
func (k MessageKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageKind.
func (k *MessageKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseMessageKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// --------------------------------------------------------------------------
// Group Record
// --------------------------------------------------------------------------

// LogEntry is one relayed message in the log of a group.
type LogEntry struct {
	SenderID string      `json:"sender_id"`
	Payload  []byte      `json:"payload"`
	Kind     MessageKind `json:"kind"`
}

// GroupRecord is the bookkeeping for one group: its members and the ordered log of
// relayed messages. Records returned by an IRegistry are snapshots, mutating them has
// no effect on the store.
type GroupRecord struct {
	GroupID string
	Creator string
	// Members in order of joining, the creator is always first
	Members []string
	// Messages is the length of the log at the time the snapshot was taken
	Messages uint64
	Log      []LogEntry
}

// NewGroupRecord creates a record whose only member is the creator.
func NewGroupRecord(groupID, creatorID string) *GroupRecord {
	return &GroupRecord{
		GroupID: groupID,
		Creator: creatorID,
		Members: []string{creatorID},
	}
}

// IsMember reports whether clientID is currently a member of the group.
func (g *GroupRecord) IsMember(clientID string) bool {
	return slices.Contains(g.Members, clientID)
}

// AddMember adds a client to the group. It reports false if the client was already a
// member, in which case the record is unchanged.
func (g *GroupRecord) AddMember(clientID string) bool {
	if g.IsMember(clientID) {
		return false
	}
	g.Members = append(g.Members, clientID)
	return true
}

// Append adds a message to the end of the log. The sender must be a member.
// The payload is copied.
func (g *GroupRecord) Append(senderID string, payload []byte, kind MessageKind) error {
	if !g.IsMember(senderID) {
		return NewError(RetCSenderNotMember, fmt.Sprintf("sender %s is not a member of group %s", senderID, g.GroupID))
	}
	g.Log = append(g.Log, LogEntry{
		SenderID: senderID,
		Payload:  slices.Clone(payload),
		Kind:     kind,
	})
	return nil
}

// Entries returns a copy of the log entries [offset, offset+limit).
// A limit of zero selects all entries after offset.
func (g *GroupRecord) Entries(offset, limit uint64) []LogEntry {
	total := uint64(len(g.Log))
	if offset >= total {
		return []LogEntry{}
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}
	out := make([]LogEntry, 0, end-offset)
	for _, e := range g.Log[offset:end] {
		out = append(out, LogEntry{SenderID: e.SenderID, Payload: slices.Clone(e.Payload), Kind: e.Kind})
	}
	return out
}

// Snapshot returns a copy of the record without its log. The log can be large and is
// read through Entries instead.
func (g *GroupRecord) Snapshot() GroupRecord {
	return GroupRecord{
		GroupID:  g.GroupID,
		Creator:  g.Creator,
		Members:  slices.Clone(g.Members),
		Messages: uint64(len(g.Log)),
	}
}
