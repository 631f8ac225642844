package transport

import (
	"context"
	"errors"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
)

// ErrFrameTooLarge is reported to the reject handler when a peer announces a frame larger
// than the configured limit. The frame is discarded, the connection stays usable.
var ErrFrameTooLarge = errors.New("frame too large")

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a complete frame is received
// It takes the frame payload and returns the payload of the response frame
type ServerHandleFunc func(req []byte) (resp []byte)

// ServerRejectFunc builds the response for a frame that could not be handed to the
// ServerHandleFunc (e.g. because it exceeded the frame limit)
type ServerRejectFunc func(err error) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers the handlers for the transport layer
	// handler is called for every received frame, reject for every frame that was refused
	RegisterHandler(handler ServerHandleFunc, reject ServerRejectFunc)
	// Listen starts the transport layer and serves connections until ctx is cancelled
	// All live connections are closed before Listen returns
	Listen(ctx context.Context, config common.ServerConfig) error
	// ActiveConnections returns the number of connections currently served
	ActiveConnections() int
	// ConnectionStates counts the served connections per state (reading, dispatching, writing)
	ConnectionStates() map[string]int
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
