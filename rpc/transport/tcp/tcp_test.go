package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectorsDialAndUpgrade(t *testing.T) {
	srv := &serverConnector{}
	listener, err := srv.Listen(common.ServerConfig{Transport: common.ServerTransportConfig{
		Endpoint: "127.0.0.1:0",
		TCPConf:  common.TCPConf{TCPKeepAliveSec: 30},
	}})
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	client := &clientConnector{}
	conn, err := client.Connect(listener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, client.UpgradeConnection(conn, common.ClientConfig{Transport: common.ClientTransportConfig{
		SocketConf: common.SocketConf{ReadBufferSize: 64 * 1024, WriteBufferSize: 64 * 1024},
		TCPConf:    common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 10, TCPLingerSec: 1},
	}}))

	serverConn, ok := <-accepted
	require.True(t, ok)
	defer serverConn.Close()
	require.NoError(t, srv.UpgradeConnection(serverConn, common.ServerConfig{}))

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = serverConn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestUpgradeIgnoresOtherConnections(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	assert.NoError(t, upgrade(a, common.SocketConf{}, common.TCPConf{TCPNoDelay: true}))
}

func TestListenBindFailure(t *testing.T) {
	_, err := (&serverConnector{}).Listen(common.ServerConfig{Transport: common.ServerTransportConfig{
		Endpoint: "not-an-address",
	}})
	assert.Error(t, err)
}
