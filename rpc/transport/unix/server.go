package unix

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/base"
)

const (
	defaultBufferSize = 64 * 1024 // 64 KB

	// socketMode limits access to the owner and group of the server process
	socketMode fs.FileMode = 0o660
)

// serverConnector binds a socket path
type serverConnector struct{}

func (c *serverConnector) GetName() string {
	return "unix"
}

// Listen binds the socket path. A socket file left behind by a previous server is
// replaced, any other file at the path is an error.
func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.Transport.Endpoint

	info, err := os.Lstat(socketPath)
	switch {
	case err == nil && info.Mode()&fs.ModeSocket == 0:
		return nil, fmt.Errorf("refusing to replace %s: not a socket", socketPath)
	case err == nil:
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to inspect %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, socketMode); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	return listener, nil
}

func (c *serverConnector) UpgradeConnection(net.Conn, common.ServerConfig) error {
	return nil
}

// NewUnixServerTransport creates a new Unix server transport with 64 KB request buffers
func NewUnixServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, defaultBufferSize)
}
