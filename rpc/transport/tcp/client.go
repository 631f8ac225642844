package tcp

import (
	"net"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return upgrade(conn, config.Transport.SocketConf, config.Transport.TCPConf)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// upgrade applies the configured socket options to a TCP connection
func upgrade(conn net.Conn, socket common.SocketConf, opts common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(opts.TCPNoDelay); err != nil {
		return err
	}

	// Set socket buffer sizes if configured
	if socket.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(socket.WriteBufferSize); err != nil {
			return err
		}
	}
	if socket.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(socket.ReadBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if opts.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(opts.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	// Set linger option if configured
	if opts.TCPLingerSec > 0 {
		if err := tcpConn.SetLinger(opts.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}
