package server

import (
	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
)

// IRPCServerAdapter executes one decoded request against a store.
//
// Handle never fails: domain errors, response-shaped requests and invalid message
// kinds all come back as an Error envelope carrying a store.RetCode, so the
// connection that sent the request stays usable.
type IRPCServerAdapter interface {
	Handle(req *common.Message, store store.IStore) (resp *common.Message)
}
