package protocol

import (
	"math/big"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
)

// Builder functions construct well-formed Messages for each RPC,
// generating a fresh correlation id for requests and threading an existing
// one through for responses.

// NewPingRequest builds a PING request from sender.
func NewPingRequest(sender id.ID) (*Message, error) {
	rpcid, err := NewRPCID()
	if err != nil {
		return nil, err
	}
	return &Message{MsgType: Req, Command: Ping, Sender: sender.BigInt(), RPCID: rpcid}, nil
}

// NewPingResponse builds the PONG for rpcid.
func NewPingResponse(sender id.ID, rpcid *big.Int) *Message {
	return &Message{MsgType: Resp, Command: Ping, Sender: sender.BigInt(), RPCID: rpcid}
}

// NewFindNodeRequest builds a FIND_NODE request targeting nodeID.
func NewFindNodeRequest(sender id.ID, target id.ID) (*Message, error) {
	rpcid, err := NewRPCID()
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: Req,
		Command: FindNode,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    FindNodePayloadRequest{NodeID: target.BigInt()},
	}, nil
}

// NewFindNodeResponse builds a FIND_NODE response carrying nodes.
func NewFindNodeResponse(sender id.ID, nodes []NodeTriple, rpcid *big.Int) *Message {
	return &Message{
		MsgType: Resp,
		Command: FindNode,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    FindNodePayloadResponse{Nodes: nodes},
	}
}

// NewFindValueRequest builds a FIND_VALUE request for key.
func NewFindValueRequest(sender id.ID, key id.ID) (*Message, error) {
	rpcid, err := NewRPCID()
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: Req,
		Command: FindValue,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    FindValuePayloadRequest{Key: key.BigInt()},
	}, nil
}

// NewFindValueFoundResponse builds a FIND_VALUE response carrying a value.
func NewFindValueFoundResponse(sender id.ID, value []byte, rpcid *big.Int) *Message {
	return &Message{
		MsgType: Resp,
		Command: FindValue,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    FindValuePayloadResponse{Value: value, Found: true},
	}
}

// NewFindValueNotFoundResponse builds a FIND_VALUE response carrying the
// closest known contacts.
func NewFindValueNotFoundResponse(sender id.ID, nodes []NodeTriple, rpcid *big.Int) *Message {
	return &Message{
		MsgType: Resp,
		Command: FindValue,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    FindValuePayloadResponse{Nodes: nodes, Found: false},
	}
}

// NewStoreRequest builds a STORE request for key/value.
func NewStoreRequest(sender id.ID, key id.ID, value []byte) (*Message, error) {
	rpcid, err := NewRPCID()
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: Req,
		Command: Store,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    StorePayloadRequest{Key: key.BigInt(), Value: value},
	}, nil
}

// NewStoreResponse builds a STORE response reporting result.
func NewStoreResponse(sender id.ID, result bool, rpcid *big.Int) *Message {
	return &Message{
		MsgType: Resp,
		Command: Store,
		Sender:  sender.BigInt(),
		RPCID:   rpcid,
		Data:    StorePayloadResponse{Result: result},
	}
}
