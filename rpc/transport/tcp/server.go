package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/base"
)

const (
	defaultBufferSize = 512 * 1024 // 512 KB
)

// serverConnector binds a host:port and tunes every accepted connection
type serverConnector struct{}

func (c *serverConnector) GetName() string {
	return "tcp"
}

// Listen binds the endpoint. Accepted connections inherit the keep-alive period,
// 0 keeps the system default.
func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	lc := net.ListenConfig{}
	if config.Transport.TCPKeepAliveSec > 0 {
		lc.KeepAlive = time.Duration(config.Transport.TCPKeepAliveSec) * time.Second
	}

	listener, err := lc.Listen(context.Background(), "tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", config.Transport.Endpoint, err)
	}

	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return upgrade(conn, config.Transport.SocketConf, config.Transport.TCPConf)
}

// NewTCPServerTransport creates a new TCP server transport with 512 KB request buffers
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, defaultBufferSize)
}
