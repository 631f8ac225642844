package server

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
)

// NewStoreServerAdapter creates the adapter that maps relay requests onto a store.IStore
func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

// storeServerAdapterImpl is stateless, all state lives in the store
type storeServerAdapterImpl struct{}

func (adapter *storeServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}

	// Responses and unknown types are never executed
	if !req.IsRequest() {
		return common.NewErrorResponse(store.RetCInvalidOperation,
			fmt.Sprintf("%s is not a valid request", req.MsgType))
	}

	switch req.MsgType {
	case common.MsgTStoreBundle:
		if err := s.PutBundle(req.ClientID, req.Bundle); err != nil {
			return common.NewErrorResponseFromErr("store bundle", err)
		}
		return common.NewAck(true, fmt.Sprintf("bundle stored for %s", req.ClientID))

	case common.MsgTFetchBundle:
		bundle, found, err := s.GetBundle(req.ClientID)
		if err != nil {
			return common.NewErrorResponseFromErr("fetch bundle", err)
		}
		return common.NewBundleResult(req.ClientID, bundle, found)

	case common.MsgTListBundles:
		ids, err := s.ListIdentities()
		if err != nil {
			return common.NewErrorResponseFromErr("list bundles", err)
		}
		sort.Strings(ids)
		return common.NewBundleList(ids)

	case common.MsgTCreateGroup:
		group, err := s.CreateGroup(req.GroupID, req.CreatorID)
		if err != nil {
			return common.NewErrorResponseFromErr("create group", err)
		}
		return common.NewGroupResult(group)

	case common.MsgTJoinGroup:
		group, err := s.JoinGroup(req.GroupID, req.ClientID)
		if err != nil {
			return common.NewErrorResponseFromErr("join group", err)
		}
		return common.NewGroupResult(group)

	case common.MsgTRelayMessage:
		if !req.Kind.Valid() {
			return common.NewErrorResponse(store.RetCInvalidOperation,
				fmt.Sprintf("relay message: invalid message kind %s", req.Kind))
		}
		if err := s.Relay(req.GroupID, req.SenderID, req.Payload, req.Kind); err != nil {
			return common.NewErrorResponseFromErr("relay message", err)
		}
		return common.NewAck(true, "")

	case common.MsgTFetchGroup:
		group, err := s.GetGroup(req.GroupID)
		if err != nil {
			return common.NewErrorResponseFromErr("fetch group", err)
		}
		return common.NewGroupResult(group)

	case common.MsgTFetchMessages:
		entries, total, err := s.FetchMessages(req.GroupID, req.ClientID, req.Offset, req.Limit)
		if err != nil {
			return common.NewErrorResponseFromErr("fetch messages", err)
		}
		return common.NewMessageList(req.GroupID, req.Offset, total, entries)

	default:
		return common.NewErrorResponse(store.RetCInvalidOperation,
			fmt.Sprintf("unsupported message type: %s", req.MsgType))
	}
}
