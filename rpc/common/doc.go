// Package common provides core data structures and utilities shared across
// the relay. It defines the wire envelope, configuration structures and the
// logging setup used by other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: the single envelope for all requests and responses. MsgType is the
//     discriminant of a closed set of kinds, requests (StoreBundle, FetchBundle,
//     ListBundles, CreateGroup, JoinGroup, RelayMessage, FetchGroup, FetchMessages)
//     and responses (BundleResult, BundleList, GroupResult, MessageList, Ack, Error).
//     Includes factory methods for every kind.
//
//   - ServerConfig / ClientConfig: configuration for the server and for clients,
//     including transport and socket options.
//
//   - Logger: a dragonboat logger.ILogger with a consistent "LEVEL | name | msg" format.
package common
