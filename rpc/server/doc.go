// Package server implements the relay server: it decodes request frames, dispatches
// them against the in-memory store and encodes the responses.
//
// Key Components:
//
//   - IRPCServerAdapter: maps one decoded request onto a store.IStore and builds the
//     response. NewStoreServerAdapter is the only implementation; it is stateless and
//     turns every store error into an Error response carrying the store return code.
//
//   - NewRPCServer: creates a server from a configuration, a transport and a serializer.
//     Serve blocks until the context is cancelled, running the transport and (if
//     configured) the prometheus /metrics endpoint side by side.
//
// Requests that cannot be deserialized never reach the adapter, they are answered with
// an Error response and the connection stays open. The same holds for frames the
// transport refuses because of their size.
//
// Usage Example:
//
//	s := server.NewRPCServer(
//	  common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "0.0.0.0:7400"}},
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewJSONSerializer(),
//	)
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
