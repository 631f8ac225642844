package unix

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectMissingSocket(t *testing.T) {
	_, err := (&clientConnector{}).Connect(filepath.Join(t.TempDir(), "relay.sock"), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no relay socket")
}

func TestListenReplacesStaleSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "relay.sock")

	// leave a socket file behind like a crashed server would
	stale, err := net.Listen("unix", socket)
	require.NoError(t, err)
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, stale.Close())

	listener, err := (&serverConnector{}).Listen(common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: socket}})
	require.NoError(t, err)
	defer listener.Close()

	info, err := os.Stat(socket)
	require.NoError(t, err)
	assert.Equal(t, socketMode, info.Mode().Perm())

	conn, err := (&clientConnector{}).Connect(socket, time.Second)
	require.NoError(t, err)
	conn.Close()
}

func TestListenKeepsRegularFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o600))

	_, err := (&serverConnector{}).Listen(common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: path}})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}
