// Package base implements the protocol agnostic part of the relay transports. Socket
// specific behaviour is injected through IServerConnector and IClientConnector.
//
// Framing:
//
// Every request and every response is one frame:
//
//	8 bytes  requestID (uint64, big endian, echoed in the response)
//	4 bytes  length    (uint32, big endian)
//	N bytes  payload   (serialized common.Message)
//
// Server:
//
// One goroutine per accepted connection. A connection moves through the states
// reading, dispatching and writing, and a response is written completely before the
// next frame is read, so responses on one connection come back in request order.
// Frames larger than the configured limit are drained and answered through the reject
// handler without closing the connection. A clean EOF or any I/O error closes only that
// connection. Live connections are tracked in an xsync map and closed on shutdown.
//
// Client:
//
// Requests are spread round robin over ConnectionsPerEndpoint connections per endpoint.
// Responses are matched to waiting requests by requestID, failed attempts are retried
// with exponential backoff and broken connections are dialed again on next use.
package base
