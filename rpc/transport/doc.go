// Package transport defines the interfaces for moving request and response frames
// between relay clients and the relay server. Implementations live in the sub packages:
// base contains the protocol agnostic framing and connection handling, tcp and unix
// provide the socket specific connectors.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     accept connections and hand complete frames to a ServerHandleFunc.
package transport
