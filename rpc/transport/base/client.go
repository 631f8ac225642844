package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var errConnectionClosed = errors.New("connection is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect dials a single connection to endpoint, giving up after timeout (0 waits for the OS)
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection represents a single net connection. A broken connection is
// re-established on the next request that picks it.
type clientConnection struct {
	conn         net.Conn
	endpoint     string
	requestChans *xsync.MapOf[uint64, chan responseResult]
	connMu       sync.Mutex // Protects the connection itself
	writeMu      sync.Mutex // Serializes frame writes
	parent       *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	// Store the config
	t.config = config
	t.stopping.Store(false)

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := 1
	if config.Transport.ConnectionsPerEndpoint > 0 {
		connectionsPerEP = config.Transport.ConnectionsPerEndpoint
	}

	connections := make([]*clientConnection, 0, len(config.Transport.Endpoints)*connectionsPerEP)

	// Initialize client connections
	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint:     endpoint,
				requestChans: xsync.NewMapOf[uint64, chan responseResult](),
				parent:       t,
			}

			// Establish the initial connection
			if _, err := clientConn.connection(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connections = append(connections, clientConn)

			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	// Check if we have at least one connection
	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(req []byte) (resp []byte, err error) {
	// Failures before the frame is written are retried with exponential backoff
	var lastErr error

	// We always try at least once, and up to maxRetries times
	maxRetries := t.config.Transport.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < maxRetries; i++ {
		if t.stopping.Load() {
			return nil, fmt.Errorf("transport is closed")
		}

		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		// Every attempt uses a fresh request ID so a late response of a failed attempt is dropped
		requestID := atomic.AddUint64(&t.nextRequestID, 1)

		data, written, err := conn.send(requestID, req)
		if err == nil {
			return data, nil
		}
		if written {
			// the server may already have executed the request, sending it again is not safe
			return nil, err
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	// Simple Round Robin algorithm
	var index uint64
	if len(t.connections) == 1 {
		// optimize for single connection
		index = 0
	} else {
		index = atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	}
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, c := range t.connections {
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()
	}

	// Empty the list
	t.connections = nil
}

// send writes one request frame and waits for the response with the same request ID.
// written reports whether the frame reached the connection, only failures before that
// point may be retried.
func (c *clientConnection) send(requestID uint64, req []byte) (data []byte, written bool, err error) {
	conn, err := c.connection()
	if err != nil {
		return nil, false, err
	}

	// Create a channel for the response
	respCh := make(chan responseResult, 1)

	// Register the request
	c.requestChans.Store(requestID, respCh)

	// Ensure we clean up when done
	defer c.requestChans.Delete(requestID)

	var timeout time.Duration
	if c.parent.config.TimeoutSecond > 0 {
		timeout = time.Duration(c.parent.config.TimeoutSecond) * time.Second
	}

	// Lock the connection only for writing
	c.writeMu.Lock()
	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err = writeFrame(conn, requestID, req)
	c.writeMu.Unlock()

	if err != nil {
		c.drop(conn, err)
		return nil, false, err
	}

	// Wait for response or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, true, result.err
	case <-timeoutCh:
		return nil, true, fmt.Errorf("request %d timed out after %s", requestID, timeout)
	}
}

// connection returns the live connection, dialing a new one if the last one broke
func (c *clientConnection) connection() (net.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}
	if c.parent.stopping.Load() {
		return nil, errConnectionClosed
	}

	// Connect to the endpoint
	conn, err := c.parent.connector.Connect(c.endpoint, time.Duration(c.parent.config.TimeoutSecond)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	c.conn = conn

	// Start the response reader
	go c.readResponses(conn)
	return conn, nil
}

// drop closes conn (if it is still the current connection) and fails all pending requests
func (c *clientConnection) drop(conn net.Conn, cause error) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()
	conn.Close()

	c.requestChans.Range(func(requestID uint64, respCh chan responseResult) bool {
		select {
		case respCh <- responseResult{nil, fmt.Errorf("%w: %v", errConnectionClosed, cause)}:
		default:
		}
		return true
	})
}

// readResponses reads responses in a loop and distributes them to waiting requests.
// It exits when the connection fails.
func (c *clientConnection) readResponses(conn net.Conn) {
	for {
		// Read the response frame (responses are not size limited on the client)
		requestID, data, err := readFrame(conn, nil, 0)
		if err != nil {
			if !c.parent.stopping.Load() {
				Logger.Debugf("Connection to %s lost: %v", c.endpoint, err)
			}
			c.drop(conn, err)
			return
		}

		// Find the corresponding request channel
		respCh, found := c.requestChans.Load(requestID)
		if !found {
			Logger.Warningf("Received response for unknown request ID %d", requestID)
			continue
		}

		select {
		case respCh <- responseResult{data, nil}:
		default:
		}
	}
}
