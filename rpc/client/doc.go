// Package client implements the relay client: a store.IStore whose operations are
// sent to a remote relay server.
//
// Error responses of the server are turned back into *store.Error values with the
// original return code, so callers match them exactly like local store errors:
//
//	if errors.Is(err, store.ErrSenderNotMember) { ... }
//
// Transport failures (no connection, timeouts) are returned as plain errors after
// the transport exhausted its retries.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:7400"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	relay, err := client.NewRPCStore(config, tcp.NewTCPClientTransport(), serializer.NewJSONSerializer())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	relay.PutBundle("alice", bundle)
//	relay.CreateGroup("g1", "alice")
//
// Thread Safety:
//
//	The client is safe for concurrent use from multiple goroutines.
package client
