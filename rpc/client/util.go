package client

import (
	"fmt"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/serializer"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed to talk to a relay server
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends a request and waits for the response
// Error responses are returned as typed store errors, so errors.Is(err, store.ErrGroupNotFound) works on the client
// A response of a type other than expected is an error as well
func (a *rpcClientAdapter) invoke(req *common.Message, expected common.MessageType) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s request: %w", req.MsgType, err)
	}

	respBytes, err := a.transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("failed to deserialize response to %s: %w", req.MsgType, err)
	}

	// Check if the response is an error response
	if err := resp.Err(); err != nil {
		Logger.Debugf("%s failed: %v", req.MsgType, err)
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != expected {
		return nil, fmt.Errorf("unexpected response type %s to %s, expected %s", resp.MsgType, req.MsgType, expected)
	}

	return resp, nil
}

// ack sends a request answered with an Ack. A negative Ack is an error as well.
func (a *rpcClientAdapter) ack(req *common.Message) error {
	resp, err := a.invoke(req, common.MsgTAck)
	if err != nil {
		return err
	}
	if !resp.Ok {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("%s not acknowledged: %s", req.MsgType, resp.Detail))
	}
	return nil
}
