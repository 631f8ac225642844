package client

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/serializer"
	"github.com/ValentinKolb/mlsrelay/rpc/server"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a relay server on a unix socket until the test ends
func startServer(t *testing.T, serializerName string, maxFrameSize int) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "relay.sock")

	s, err := serializer.New(serializerName)
	require.NoError(t, err)

	srv := server.NewRPCServer(common.ServerConfig{
		TimeoutSecond: 5,
		Transport:     common.ServerTransportConfig{Endpoint: socket, MaxFrameSize: maxFrameSize},
		LogLevel:      "error",
	}, unix.NewUnixServerTransport(), s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return socket
}

func newClient(t *testing.T, socket, serializerName string) store.IStore {
	t.Helper()
	s, err := serializer.New(serializerName)
	require.NoError(t, err)

	tr := unix.NewUnixClientTransport()
	relay, err := NewRPCStore(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             2,
			ConnectionsPerEndpoint: 2,
		},
	}, tr, s)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return relay
}

func TestRelayScenario(t *testing.T) {
	for _, name := range serializer.Names() {
		t.Run(name, func(t *testing.T) {
			socket := startServer(t, name, 0)
			relay := newClient(t, socket, name)

			// directory
			found, ok, err := relay.GetBundle("alice")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, found)

			require.NoError(t, relay.PutBundle("alice", []byte{0x01, 0x02}))
			require.NoError(t, relay.PutBundle("bob", []byte{}))
			require.NoError(t, relay.PutBundle("alice", []byte{0x03}))

			bundle, ok, err := relay.GetBundle("alice")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte{0x03}, bundle)

			bundle, ok, err = relay.GetBundle("bob")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte{}, bundle)

			ids, err := relay.ListIdentities()
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob"}, ids)

			// registry
			g, err := relay.CreateGroup("g1", "alice")
			require.NoError(t, err)
			assert.Equal(t, []string{"alice"}, g.Members)
			assert.Equal(t, "alice", g.Creator)

			_, err = relay.CreateGroup("g1", "bob")
			assert.ErrorIs(t, err, store.ErrGroupExists)

			g, err = relay.JoinGroup("g1", "bob")
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob"}, g.Members)

			_, err = relay.JoinGroup("g2", "bob")
			assert.ErrorIs(t, err, store.ErrGroupNotFound)

			require.NoError(t, relay.Relay("g1", "alice", []byte("commit"), store.KindCommit))
			require.NoError(t, relay.Relay("g1", "bob", []byte("app"), store.KindApplication))

			err = relay.Relay("g1", "carol", []byte("x"), store.KindApplication)
			assert.ErrorIs(t, err, store.ErrSenderNotMember)

			err = relay.Relay("g1", "alice", []byte("x"), store.KindUnknown)
			assert.ErrorIs(t, err, store.ErrInvalidOperation)

			g, err = relay.GetGroup("g1")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), g.Messages)

			entries, total, err := relay.FetchMessages("g1", "bob", 0, 0)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), total)
			assert.Equal(t, []store.LogEntry{
				{SenderID: "alice", Payload: []byte("commit"), Kind: store.KindCommit},
				{SenderID: "bob", Payload: []byte("app"), Kind: store.KindApplication},
			}, entries)

			entries, total, err = relay.FetchMessages("g1", "bob", 1, 1)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), total)
			require.Len(t, entries, 1)
			assert.Equal(t, "bob", entries[0].SenderID)

			entries, _, err = relay.FetchMessages("g1", "bob", 5, 0)
			require.NoError(t, err)
			assert.Empty(t, entries)

			_, _, err = relay.FetchMessages("g1", "carol", 0, 0)
			assert.ErrorIs(t, err, store.ErrSenderNotMember)
		})
	}
}

func TestConcurrentClients(t *testing.T) {
	socket := startServer(t, "binary", 0)
	admin := newClient(t, socket, "binary")

	const senders = 8
	const perSender = 25

	_, err := admin.CreateGroup("g1", "sender-0")
	require.NoError(t, err)
	for i := 1; i < senders; i++ {
		_, err := admin.JoinGroup("g1", fmt.Sprintf("sender-%d", i))
		require.NoError(t, err)
	}

	clients := make([]store.IStore, senders)
	for i := range clients {
		clients[i] = newClient(t, socket, "binary")
	}

	var wg sync.WaitGroup
	for i, relay := range clients {
		wg.Add(1)
		go func(i int, relay store.IStore) {
			defer wg.Done()
			id := fmt.Sprintf("sender-%d", i)
			for n := 0; n < perSender; n++ {
				assert.NoError(t, relay.Relay("g1", id, []byte(fmt.Sprintf("%d", n)), store.KindApplication))
			}
		}(i, relay)
	}
	wg.Wait()

	entries, total, err := admin.FetchMessages("g1", "sender-0", 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(senders*perSender), total)

	// messages of one sender keep their order
	next := map[string]int{}
	for _, e := range entries {
		assert.Equal(t, fmt.Sprintf("%d", next[e.SenderID]), string(e.Payload))
		next[e.SenderID]++
	}
	assert.Len(t, next, senders)
}

// --------------------------------------------------------------------------
// Raw connection tests
// --------------------------------------------------------------------------

func writeRaw(t *testing.T, conn net.Conn, id uint64, payload []byte) {
	t.Helper()
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], id)
	binary.BigEndian.PutUint32(header[8:], uint32(len(payload)))
	_, err := conn.Write(append(header, payload...))
	require.NoError(t, err)
}

func readRaw(t *testing.T, conn net.Conn) (uint64, common.Message) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	header := make([]byte, 12)
	_, err := io.ReadFull(conn, header)
	require.NoError(t, err)
	payload := make([]byte, binary.BigEndian.Uint32(header[8:]))
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)

	var msg common.Message
	require.NoError(t, serializer.NewJSONSerializer().Deserialize(payload, &msg))
	return binary.BigEndian.Uint64(header[:8]), msg
}

func TestMalformedRequestKeepsConnection(t *testing.T) {
	socket := startServer(t, "json", 128)
	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer conn.Close()

	// not json
	writeRaw(t, conn, 1, []byte("{{{"))
	id, resp := readRaw(t, conn)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, common.MsgTError, resp.MsgType)

	// a response kind sent as request
	writeRaw(t, conn, 2, []byte(`{"type":"Ack","ok":true}`))
	id, resp = readRaw(t, conn)
	assert.Equal(t, uint64(2), id)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Detail, "not a valid request")

	// larger than the frame limit
	writeRaw(t, conn, 3, make([]byte, 200))
	id, resp = readRaw(t, conn)
	assert.Equal(t, uint64(3), id)
	assert.Equal(t, common.MsgTError, resp.MsgType)

	// the connection is still usable
	writeRaw(t, conn, 4, []byte(`{"type":"CreateGroup","group_id":"g1","creator_id":"alice"}`))
	id, resp = readRaw(t, conn)
	assert.Equal(t, uint64(4), id)
	assert.Equal(t, common.MsgTGroupResult, resp.MsgType)
	assert.Equal(t, []string{"alice"}, resp.Members)
}
