package client

import (
	"encoding/json"

	"github.com/defistate/defistate-amm-go/streams/jsonrpc/server"
)

const (
	// RpcNamespace is the namespace under which the pool API is registered.
	RpcNamespace = server.RpcNamespace

	PoolStreamSubscriptionMethod = "subscribePoolStream"
	SwapSubscriptionMethod       = "subscribeSwaps"
)

// SubscriptionEvent is the wrapper object received from the server.
// Payload is decoded later according to Type.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}
