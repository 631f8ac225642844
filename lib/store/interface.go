package store

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IDirectory maps client identities to their currently published key bundle.
// A key bundle is an opaque blob, the store assigns it no structure.
type IDirectory interface {
	// PutBundle inserts or overwrites the bundle of a client. Last writer wins.
	PutBundle(clientID string, bundle []byte) (err error)
	// GetBundle returns the bundle of a client. The boolean return value indicates
	// whether the client ever published a bundle. Absence is not an error.
	GetBundle(clientID string) (bundle []byte, found bool, err error)
	// ListIdentities returns all identities with a stored bundle, in no guaranteed order.
	ListIdentities() (identities []string, err error)
}

// IRegistry tracks groups, their members and the ordered log of relayed messages.
type IRegistry interface {
	// CreateGroup registers a new group whose only member is the creator.
	// Fails with ErrGroupExists if the group id is already taken.
	CreateGroup(groupID, creatorID string) (group GroupRecord, err error)
	// JoinGroup adds a client to the members of a group. Joining twice is not an error
	// and does not duplicate the member. Fails with ErrGroupNotFound.
	JoinGroup(groupID, clientID string) (group GroupRecord, err error)
	// Relay appends a message to the log of a group. The sender must be a member at the
	// moment of the call. Fails with ErrGroupNotFound or ErrSenderNotMember.
	Relay(groupID, senderID string, payload []byte, kind MessageKind) (err error)
	// GetGroup returns a snapshot of a group. Fails with ErrGroupNotFound.
	GetGroup(groupID string) (group GroupRecord, err error)
	// FetchMessages returns the log entries [offset, offset+limit) of a group together
	// with the total length of the log. A limit of zero returns all remaining entries.
	// The reader must be a member. Fails with ErrGroupNotFound or ErrSenderNotMember.
	FetchMessages(groupID, clientID string, offset, limit uint64) (entries []LogEntry, total uint64, err error)
}

// IStore is the state store of the relay: a directory and a registry.
// The two structures are independent, no operation spans both.
type IStore interface {
	IDirectory
	IRegistry
	// Stats returns counters about the stored data.
	// It is not guaranteed that the values are consistent with each other!
	Stats() (stats Stats, err error)
}

// Stats holds size information about a store.
type Stats struct {
	Bundles    int `json:"bundles"`
	Groups     int `json:"groups"`
	LogEntries int `json:"log_entries"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is matches errors by their return code, so that errors.Is(err, ErrGroupNotFound)
// holds for every not-found error regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Sentinel errors for use with errors.Is
var (
	ErrGroupExists      = NewError(RetCGroupExists, "group already exists")
	ErrGroupNotFound    = NewError(RetCGroupNotFound, "group not found")
	ErrSenderNotMember  = NewError(RetCSenderNotMember, "sender not member")
	ErrInvalidOperation = NewError(RetCInvalidOperation, "invalid operation")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation (e.g. unknown message kind).
	RetCGroupExists                     // 3: A group with this id is already registered.
	RetCGroupNotFound                   // 4: No group with this id is registered.
	RetCSenderNotMember                 // 5: The client is not a member of the group.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCGroupExists:
		return "GroupExists"
	case RetCGroupNotFound:
		return "GroupNotFound"
	case RetCSenderNotMember:
		return "SenderNotMember"
	default:
		return "Unknown"
	}
}
