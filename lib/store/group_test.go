package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRecordAppendRequiresMember(t *testing.T) {
	g := NewGroupRecord("g1", "alice")

	err := g.Append("carol", []byte{1}, KindApplication)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSenderNotMember))
	assert.Empty(t, g.Log)

	require.NoError(t, g.Append("alice", []byte{1}, KindApplication))
	assert.Len(t, g.Log, 1)
}

func TestGroupRecordAddMember(t *testing.T) {
	g := NewGroupRecord("g1", "alice")

	assert.True(t, g.AddMember("bob"))
	assert.False(t, g.AddMember("bob"))
	assert.False(t, g.AddMember("alice"))
	assert.Equal(t, []string{"alice", "bob"}, g.Members)
}

func TestGroupRecordSnapshotIsDetached(t *testing.T) {
	g := NewGroupRecord("g1", "alice")
	require.NoError(t, g.Append("alice", []byte("hi"), KindWelcome))

	snap := g.Snapshot()
	snap.Members[0] = "mallory"

	assert.Equal(t, "alice", g.Members[0])
	assert.Equal(t, uint64(1), snap.Messages)
	assert.Nil(t, snap.Log)
}

func TestGroupRecordEntries(t *testing.T) {
	g := NewGroupRecord("g1", "alice")
	for i := 0; i < 4; i++ {
		require.NoError(t, g.Append("alice", []byte{byte(i)}, KindApplication))
	}

	tests := []struct {
		offset, limit uint64
		want          []byte
	}{
		{0, 0, []byte{0, 1, 2, 3}},
		{1, 0, []byte{1, 2, 3}},
		{1, 2, []byte{1, 2}},
		{3, 5, []byte{3}},
		{4, 0, []byte{}},
		{2, ^uint64(0), []byte{2, 3}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("offset=%d,limit=%d", tt.offset, tt.limit), func(t *testing.T) {
			got := []byte{}
			for _, e := range g.Entries(tt.offset, tt.limit) {
				got = append(got, e.Payload[0])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageKindJSON(t *testing.T) {
	for k := KindWelcome; k <= KindProposal; k++ {
		data, err := json.Marshal(k)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%q", k.String()), string(data))

		var back MessageKind
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, k, back)
	}

	var k MessageKind
	assert.Error(t, json.Unmarshal([]byte(`"Shout"`), &k))
	assert.False(t, KindUnknown.Valid())
}

func TestErrorIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError(RetCGroupNotFound, "group not found: g9"))
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.NotErrorIs(t, err, ErrGroupExists)
}
