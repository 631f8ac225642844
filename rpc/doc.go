// Package rpc is the network layer of the relay. It carries the directory and
// group registry operations of lib/store between clients and the server.
//
// The package is organized into several subpackages:
//
//   - common: The Message envelope, configuration structures and logging.
//
//   - transport: Length-prefixed framing over stream sockets with pluggable
//     implementations (TCP, Unix sockets).
//
//   - serializer: Message encodings (JSON, binary, CBOR, MessagePack, GOB).
//
//   - server: The dispatcher that maps requests to store operations, the
//     server bootstrap and its metrics.
//
//   - client: An implementation of store.IStore that forwards every call to a
//     relay server.
package rpc
