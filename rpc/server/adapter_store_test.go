package server

import (
	"testing"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/lib/store/lstore"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleGroupLifecycle(t *testing.T) {
	s := lstore.NewLocalStore()
	a := NewStoreServerAdapter()

	resp := a.Handle(common.NewCreateGroupRequest("g1", "alice"), s)
	require.Equal(t, common.MsgTGroupResult, resp.MsgType)
	assert.Equal(t, "g1", resp.GroupID)
	assert.Equal(t, "alice", resp.CreatorID)
	assert.Equal(t, []string{"alice"}, resp.Members)

	resp = a.Handle(common.NewJoinGroupRequest("g1", "bob"), s)
	require.Equal(t, common.MsgTGroupResult, resp.MsgType)
	assert.Equal(t, []string{"alice", "bob"}, resp.Members)

	resp = a.Handle(common.NewRelayMessageRequest("g1", "alice", []byte("welcome"), store.KindWelcome), s)
	assert.Equal(t, common.MsgTAck, resp.MsgType)
	assert.True(t, resp.Ok)

	resp = a.Handle(common.NewRelayMessageRequest("g1", "carol", []byte("hi"), store.KindApplication), s)
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, store.RetCSenderNotMember, resp.Code)

	resp = a.Handle(common.NewFetchGroupRequest("g1"), s)
	require.Equal(t, common.MsgTGroupResult, resp.MsgType)
	assert.Equal(t, uint64(1), resp.Offset)

	resp = a.Handle(common.NewFetchMessagesRequest("g1", "bob", 0, 0), s)
	require.Equal(t, common.MsgTMessageList, resp.MsgType)
	assert.Equal(t, uint64(1), resp.Total)
	assert.Equal(t, []store.LogEntry{{SenderID: "alice", Payload: []byte("welcome"), Kind: store.KindWelcome}}, resp.Entries)
}

func TestHandleErrors(t *testing.T) {
	s := lstore.NewLocalStore()
	a := NewStoreServerAdapter()
	_, err := s.CreateGroup("g1", "alice")
	require.NoError(t, err)

	testCases := []struct {
		name string
		req  *common.Message
		code store.RetCode
	}{
		{name: "duplicate group", req: common.NewCreateGroupRequest("g1", "bob"), code: store.RetCGroupExists},
		{name: "join unknown group", req: common.NewJoinGroupRequest("nope", "bob"), code: store.RetCGroupNotFound},
		{name: "relay to unknown group", req: common.NewRelayMessageRequest("nope", "alice", []byte("x"), store.KindCommit), code: store.RetCGroupNotFound},
		{name: "relay without kind", req: common.NewRelayMessageRequest("g1", "alice", []byte("x"), store.KindUnknown), code: store.RetCInvalidOperation},
		{name: "fetch unknown group", req: common.NewFetchGroupRequest("nope"), code: store.RetCGroupNotFound},
		{name: "fetch messages as outsider", req: common.NewFetchMessagesRequest("g1", "mallory", 0, 0), code: store.RetCSenderNotMember},
		{name: "response sent as request", req: common.NewAck(true, ""), code: store.RetCInvalidOperation},
		{name: "missing type", req: &common.Message{GroupID: "g1"}, code: store.RetCInvalidOperation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.Handle(tc.req, s)
			require.Equal(t, common.MsgTError, resp.MsgType)
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.Detail)
		})
	}

	// none of the failed requests changed the group
	g, err := s.GetGroup("g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, g.Members)
	assert.Equal(t, uint64(0), g.Messages)
}

func TestHandleBundles(t *testing.T) {
	s := lstore.NewLocalStore()
	a := NewStoreServerAdapter()

	resp := a.Handle(common.NewFetchBundleRequest("alice"), s)
	require.Equal(t, common.MsgTBundleResult, resp.MsgType)
	assert.False(t, resp.Ok)
	assert.Nil(t, resp.Bundle)

	for _, id := range []string{"carol", "alice", "bob"} {
		resp = a.Handle(common.NewStoreBundleRequest(id, []byte("kb-"+id)), s)
		assert.Equal(t, common.MsgTAck, resp.MsgType)
		assert.True(t, resp.Ok)
	}
	resp = a.Handle(common.NewStoreBundleRequest("alice", []byte("kb-alice-2")), s)
	assert.True(t, resp.Ok)

	resp = a.Handle(common.NewFetchBundleRequest("alice"), s)
	assert.True(t, resp.Ok)
	assert.Equal(t, []byte("kb-alice-2"), resp.Bundle)

	resp = a.Handle(common.NewListBundlesRequest(), s)
	require.Equal(t, common.MsgTBundleList, resp.MsgType)
	assert.Equal(t, []string{"alice", "bob", "carol"}, resp.Identities)
}

func TestHandleNilStore(t *testing.T) {
	resp := NewStoreServerAdapter().Handle(common.NewListBundlesRequest(), nil)
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, store.RetCInternalError, resp.Code)
}
