package lstore

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleOverwrite(t *testing.T) {
	s := NewLocalStore()

	require.NoError(t, s.PutBundle("alice", []byte("b1")))
	got, found, err := s.GetBundle("alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("b1"), got)

	require.NoError(t, s.PutBundle("alice", []byte("b2")))
	got, found, err = s.GetBundle("alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("b2"), got)
}

func TestBundleAbsent(t *testing.T) {
	s := NewLocalStore()

	got, found, err := s.GetBundle("nobody")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestBundleIsCopied(t *testing.T) {
	s := NewLocalStore()

	in := []byte{1, 2, 3}
	require.NoError(t, s.PutBundle("alice", in))
	in[0] = 9

	out, _, _ := s.GetBundle("alice")
	assert.Equal(t, []byte{1, 2, 3}, out)
	out[1] = 9

	again, _, _ := s.GetBundle("alice")
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestListIdentities(t *testing.T) {
	s := NewLocalStore()

	ids, err := s.ListIdentities()
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"carol", "alice", "bob", "alice"} {
		require.NoError(t, s.PutBundle(id, []byte(id)))
	}

	ids, err = s.ListIdentities()
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
}

func TestCreateGroupTwice(t *testing.T) {
	s := NewLocalStore()

	g, err := s.CreateGroup("g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, g.Members)
	assert.Equal(t, "alice", g.Creator)

	_, err = s.CreateGroup("g1", "mallory")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrGroupExists)

	g, err = s.GetGroup("g1")
	require.NoError(t, err)
	assert.Equal(t, "alice", g.Creator)
	assert.Equal(t, []string{"alice"}, g.Members)
}

func TestJoinGroup(t *testing.T) {
	s := NewLocalStore()

	_, err := s.JoinGroup("missing", "bob")
	assert.ErrorIs(t, err, store.ErrGroupNotFound)

	_, err = s.CreateGroup("g1", "alice")
	require.NoError(t, err)

	g, err := s.JoinGroup("g1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, g.Members)

	g, err = s.JoinGroup("g1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, g.Members)

	g, err = s.JoinGroup("g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, g.Members)
}

func TestRelayScenario(t *testing.T) {
	s := NewLocalStore()

	g, err := s.CreateGroup("g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, g.Members)

	g, err = s.JoinGroup("g1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, g.Members)

	require.NoError(t, s.Relay("g1", "bob", []byte{1, 2, 3}, store.KindApplication))

	err = s.Relay("g1", "carol", []byte{4}, store.KindApplication)
	assert.ErrorIs(t, err, store.ErrSenderNotMember)

	err = s.Relay("nope", "bob", []byte{4}, store.KindApplication)
	assert.ErrorIs(t, err, store.ErrGroupNotFound)

	entries, total, err := s.FetchMessages("g1", "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, store.LogEntry{SenderID: "bob", Payload: []byte{1, 2, 3}, Kind: store.KindApplication}, entries[0])

	g, err = s.GetGroup("g1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g.Messages)
}

func TestRelayMembershipIsLive(t *testing.T) {
	s := NewLocalStore()
	_, err := s.CreateGroup("g1", "alice")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Relay("g1", "bob", nil, store.KindCommit), store.ErrSenderNotMember)

	_, err = s.JoinGroup("g1", "bob")
	require.NoError(t, err)
	assert.NoError(t, s.Relay("g1", "bob", nil, store.KindCommit))
}

func TestFetchMessagesWindow(t *testing.T) {
	s := NewLocalStore()
	_, err := s.CreateGroup("g1", "alice")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Relay("g1", "alice", []byte{byte(i)}, store.KindApplication))
	}

	entries, total, err := s.FetchMessages("g1", "alice", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte{1}, entries[0].Payload)
	assert.Equal(t, []byte{2}, entries[1].Payload)

	entries, _, err = s.FetchMessages("g1", "alice", 3, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, _, err = s.FetchMessages("g1", "alice", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, _, err = s.FetchMessages("g1", "eve", 0, 0)
	assert.ErrorIs(t, err, store.ErrSenderNotMember)

	_, _, err = s.FetchMessages("g2", "alice", 0, 0)
	assert.ErrorIs(t, err, store.ErrGroupNotFound)
}

func TestConcurrentJoins(t *testing.T) {
	s := NewLocalStore()
	_, err := s.CreateGroup("g1", "creator")
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.JoinGroup("g1", fmt.Sprintf("member-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	g, err := s.GetGroup("g1")
	require.NoError(t, err)
	require.Len(t, g.Members, n+1)
	assert.Equal(t, "creator", g.Members[0])

	want := []string{"creator"}
	for i := 0; i < n; i++ {
		want = append(want, fmt.Sprintf("member-%d", i))
	}
	assert.ElementsMatch(t, want, g.Members)
}

// Every sender relays a numbered sequence concurrently. The log must contain all
// messages and each sender's messages must keep their call order.
func TestConcurrentRelayOrder(t *testing.T) {
	s := NewLocalStore()
	_, err := s.CreateGroup("g1", "s0")
	require.NoError(t, err)

	const senders, perSender = 8, 100
	for i := 1; i < senders; i++ {
		_, err := s.JoinGroup("g1", fmt.Sprintf("s%d", i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				assert.NoError(t, s.Relay("g1", sender, []byte{byte(j)}, store.KindApplication))
			}
		}(fmt.Sprintf("s%d", i))
	}

	// readers must not be blocked out by writers and vice versa
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < perSender; j++ {
			_, _, err := s.FetchMessages("g1", "s0", 0, 0)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	entries, total, err := s.FetchMessages("g1", "s0", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(senders*perSender), total)

	next := map[string]byte{}
	for _, e := range entries {
		assert.Equal(t, next[e.SenderID], e.Payload[0], "sender %s out of order", e.SenderID)
		next[e.SenderID]++
	}
}

func TestStats(t *testing.T) {
	s := NewLocalStore()
	require.NoError(t, s.PutBundle("alice", []byte("x")))
	_, err := s.CreateGroup("g1", "alice")
	require.NoError(t, err)
	require.NoError(t, s.Relay("g1", "alice", []byte("m"), store.KindWelcome))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Bundles: 1, Groups: 1, LogEntries: 1}, stats)
}
