package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Connection State
// -----------------------------------------------------------

// ConnState is the state of one served connection
type ConnState int32

const (
	StateReading     ConnState = iota // Waiting for (the rest of) a request frame
	StateDispatching                  // A complete frame is being handled
	StateWriting                      // The response frame is being written
	StateClosed                       // Terminal, the connection is released
)

func (s ConnState) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateDispatching:
		return "dispatching"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverConnection is one accepted connection
type serverConnection struct {
	id    string
	conn  net.Conn
	state atomic.Int32
}

func (c *serverConnection) setState(s ConnState) {
	c.state.Store(int32(s))
}

// State returns the current state of the connection
func (c *serverConnection) State() ConnState {
	return ConnState(c.state.Load())
}

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	reject     transport.ServerRejectFunc
	config     common.ServerConfig
	bufferPool *sync.Pool
	conns      *xsync.MapOf[string, *serverConnection]
	wg         sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. Every connection is served
// by one goroutine, request buffers of bufferSize bytes are pooled.
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[string, *serverConnection](),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc, reject transport.ServerRejectFunc) {
	t.handler = handler
	t.reject = reject
}

func (t *serverTransport) ActiveConnections() int {
	return t.conns.Size()
}

func (t *serverTransport) ConnectionStates() map[string]int {
	states := make(map[string]int)
	t.conns.Range(func(_ string, c *serverConnection) bool {
		states[c.State().String()]++
		return true
	})
	return states
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil || t.reject == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), config.Transport.Endpoint)

	// Close the listener and all live connections on shutdown
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
			t.closeConnections()
		case <-stopped:
		}
	}()

	// Accept connections
	var listenErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				listenErr = fmt.Errorf("listener closed: %w", err)
				break
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to apply socket options: %v", err)
		}

		c := &serverConnection{id: uuid.NewString(), conn: conn}
		t.conns.Store(c.id, c)

		// The shutdown sweep may already have run
		if ctx.Err() != nil {
			t.conns.Delete(c.id)
			conn.Close()
			break
		}

		// Handle the connection in a goroutine
		t.wg.Add(1)
		go t.handleConnection(c)
	}

	// Wait for all connection goroutines to finish
	listener.Close()
	t.closeConnections()
	t.wg.Wait()
	Logger.Infof("Stopped %s server on %s", t.connector.GetName(), config.Transport.Endpoint)
	return listenErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// closeConnections closes every live connection, their goroutines then exit on the failed read
func (t *serverTransport) closeConnections() {
	t.conns.Range(func(_ string, c *serverConnection) bool {
		c.conn.Close()
		return true
	})
}

// handleConnection serves one connection: read a frame, dispatch it, write the response,
// repeat. A response is always written completely before the next frame is read.
func (t *serverTransport) handleConnection(c *serverConnection) {
	defer func() {
		c.setState(StateClosed)
		t.conns.Delete(c.id)
		c.conn.Close()
		t.wg.Done()
	}()

	Logger.Debugf("Connection %s accepted from %s", c.id, c.conn.RemoteAddr())

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	maxSize := t.config.FrameLimit()

	for {
		c.setState(StateReading)
		if timeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Connection %s: failed to set read deadline: %v", c.id, err)
				return
			}
		}

		// Get a buffer from the pool
		buf := t.bufferPool.Get().([]byte)

		var resp []byte
		requestID, data, err := readFrame(c.conn, buf, maxSize)
		switch {
		case err == nil:
			c.setState(StateDispatching)
			start := time.Now()
			resp = t.handler(data)
			Logger.Debugf("Connection %s: request %d took %s", c.id, requestID, time.Since(start))
		case errors.Is(err, transport.ErrFrameTooLarge):
			Logger.Warningf("Connection %s: rejected request %d: %v", c.id, requestID, err)
			resp = t.reject(err)
		case errors.Is(err, io.EOF):
			// Case EOF: Connection closed by client
			t.bufferPool.Put(buf)
			Logger.Debugf("Connection %s closed by client", c.id)
			return
		default:
			// Case error: log and close connection
			t.bufferPool.Put(buf)
			Logger.Infof("Connection %s closed: %v", c.id, err)
			return
		}

		c.setState(StateWriting)
		if timeout > 0 {
			if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				t.bufferPool.Put(buf)
				Logger.Errorf("Connection %s: failed to set write deadline: %v", c.id, err)
				return
			}
		}

		// Write the response with the same requestID
		err = writeFrame(c.conn, requestID, resp)
		t.bufferPool.Put(buf)
		if err != nil {
			Logger.Errorf("Connection %s: failed to write response: %v", c.id, err)
			return
		}
	}
}
