package client

import (
	"fmt"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/serializer"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
)

// NewRPCStore creates a store.IStore that forwards every operation to a relay server
// The function takes a config, a transport and a serializer as parameters
// The serializer must match the one of the server
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (c *rpcStore) PutBundle(clientID string, bundle []byte) error {
	if bundle == nil {
		bundle = []byte{}
	}
	return c.ack(common.NewStoreBundleRequest(clientID, bundle))
}

func (c *rpcStore) GetBundle(clientID string) ([]byte, bool, error) {
	resp, err := c.invoke(common.NewFetchBundleRequest(clientID), common.MsgTBundleResult)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	// empty bundles may arrive as nil depending on the serializer
	if resp.Bundle == nil {
		return []byte{}, true, nil
	}
	return resp.Bundle, true, nil
}

func (c *rpcStore) ListIdentities() ([]string, error) {
	resp, err := c.invoke(common.NewListBundlesRequest(), common.MsgTBundleList)
	if err != nil {
		return nil, err
	}
	if resp.Identities == nil {
		return []string{}, nil
	}
	return resp.Identities, nil
}

func (c *rpcStore) CreateGroup(groupID, creatorID string) (store.GroupRecord, error) {
	resp, err := c.invoke(common.NewCreateGroupRequest(groupID, creatorID), common.MsgTGroupResult)
	if err != nil {
		return store.GroupRecord{}, err
	}
	return toGroupRecord(resp), nil
}

func (c *rpcStore) JoinGroup(groupID, clientID string) (store.GroupRecord, error) {
	resp, err := c.invoke(common.NewJoinGroupRequest(groupID, clientID), common.MsgTGroupResult)
	if err != nil {
		return store.GroupRecord{}, err
	}
	return toGroupRecord(resp), nil
}

func (c *rpcStore) Relay(groupID, senderID string, payload []byte, kind store.MessageKind) error {
	if payload == nil {
		payload = []byte{}
	}
	return c.ack(common.NewRelayMessageRequest(groupID, senderID, payload, kind))
}

func (c *rpcStore) GetGroup(groupID string) (store.GroupRecord, error) {
	resp, err := c.invoke(common.NewFetchGroupRequest(groupID), common.MsgTGroupResult)
	if err != nil {
		return store.GroupRecord{}, err
	}
	return toGroupRecord(resp), nil
}

func (c *rpcStore) FetchMessages(groupID, clientID string, offset, limit uint64) ([]store.LogEntry, uint64, error) {
	resp, err := c.invoke(common.NewFetchMessagesRequest(groupID, clientID, offset, limit), common.MsgTMessageList)
	if err != nil {
		return nil, 0, err
	}
	entries := resp.Entries
	if entries == nil {
		entries = []store.LogEntry{}
	}
	return entries, resp.Total, nil
}

// Stats is not part of the wire protocol, the server exposes it as metrics
func (c *rpcStore) Stats() (store.Stats, error) {
	return store.Stats{}, fmt.Errorf("the Stats() method is not implemented in the rpc client adapter")
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func toGroupRecord(resp *common.Message) store.GroupRecord {
	return store.GroupRecord{
		GroupID:  resp.GroupID,
		Creator:  resp.CreatorID,
		Members:  resp.Members,
		Messages: resp.Offset,
	}
}
