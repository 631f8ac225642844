// Package store defines the state of the relay: a directory of published key bundles
// and a registry of groups with their members and relayed message logs.
//
// The package focuses on:
//   - A unified interface (IStore) composed of IDirectory and IRegistry
//   - The pure logic of a single group record (GroupRecord)
//   - Typed errors with return codes that survive the trip over the wire
//
// Key Components:
//
//   - IDirectory: identity -> opaque key bundle. Last writer wins, absence of a
//     bundle is a valid outcome and not an error.
//
//   - IRegistry: group id -> GroupRecord. Groups are created once, grow by joins and
//     relayed messages, and are never deleted. A message may only be relayed by a
//     client that is a member at the moment of the call.
//
//   - Error System: *Error values carry a RetCode. The exported sentinels
//     (ErrGroupExists, ErrGroupNotFound, ErrSenderNotMember, ErrInvalidOperation)
//     match any error with the same code through errors.Is.
//
// Implementations:
//
//   - Local Store (lstore): in-memory implementation with one readers-writer lock for
//     the directory and one for the registry.
//     Available in the "github.com/ValentinKolb/mlsrelay/lib/store/lstore" package.
//
//   - RPC Store (rpc/client): forwards every call to a remote relay server.
package store
