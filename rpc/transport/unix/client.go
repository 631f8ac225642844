package unix

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/base"
)

// clientConnector dials the socket file of a local relay
type clientConnector struct{}

func (c *clientConnector) GetName() string {
	return "unix"
}

// Connect fails fast with a readable error if the socket file does not exist
func (c *clientConnector) Connect(socketPath string, timeout time.Duration) (net.Conn, error) {
	if _, err := os.Stat(socketPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no relay socket at %s (is the server running with --transport unix?)", socketPath)
	}
	return net.DialTimeout("unix", socketPath, timeout)
}

// UpgradeConnection has nothing to do, unix sockets have no options worth tuning
func (c *clientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error {
	return nil
}

// NewUnixClientTransport creates a client transport for relays listening on a socket path
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
