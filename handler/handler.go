// Package handler implements the server side of the four RPCs: given a
// decoded request and the sender's source IP, it learns the sender into
// the routing table and builds the appropriate response.
//
// Dispatch works only on its arguments (routing table, store, self id,
// listening port, request, sender IP), updating the table and store in
// place, precisely so it can be unit tested without a socket.
package handler

import (
	"fmt"
	"math/big"
	"net"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/protocol"
	"github.com/shabnasiraj/d7024e-dhtnode/routing"
	"github.com/shabnasiraj/d7024e-dhtnode/store"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "handler")

// Dispatch processes one decoded request and returns the response to send
// back, or nil if no response should be emitted (non-request messages are
// ignored after a warning is logged; the receive loop is only ever expected to hand
// Dispatch request messages, but defense in depth costs nothing here).
func Dispatch(rt *routing.Table, st store.Store, selfID id.ID, listenPort int, req *protocol.Message, senderIP net.IP) (*protocol.Message, error) {
	if req.MsgType != protocol.Req {
		log.WithField("msgtype", req.MsgType).Warn("ignoring non-request message in handler")
		return nil, nil
	}

	sender := learnSender(rt, selfID.Width, listenPort, req.Sender, senderIP)

	switch req.Command {
	case protocol.Ping:
		return handlePing(selfID, req), nil
	case protocol.FindNode:
		return handleFindNode(rt, selfID, req)
	case protocol.Store:
		return handleStore(st, selfID, req), nil
	case protocol.FindValue:
		return handleFindValue(rt, st, selfID, req)
	default:
		return nil, fmt.Errorf("handler: unknown command %d from %s", int(req.Command), sender.ID)
	}
}

// learnSender inserts the request's sender into the routing table using
// the datagram's source IP and the well-known listening port rather than
// whatever ephemeral port the request actually arrived from. Every node
// in the network is assumed to listen on the same canonical port.
func learnSender(rt *routing.Table, width, listenPort int, senderID *big.Int, senderIP net.IP) routing.Contact {
	c := routing.Contact{IP: senderIP, Port: listenPort, ID: id.FromBigInt(senderID, width)}
	rt.Add(c)
	return c
}

func handlePing(selfID id.ID, req *protocol.Message) *protocol.Message {
	log.WithField("from", req.Sender).Debug("PING")
	return protocol.NewPingResponse(selfID, req.RPCID)
}

func handleFindNode(rt *routing.Table, selfID id.ID, req *protocol.Message) (*protocol.Message, error) {
	data, ok := req.Data.(protocol.FindNodePayloadRequest)
	if !ok || data.NodeID == nil {
		return nil, fmt.Errorf("handler: FIND_NODE request missing nodeid")
	}
	target := id.FromBigInt(data.NodeID, selfID.Width)
	if target.Equal(selfID) {
		log.Warn("FIND_NODE request issued with own node id; answering anyway")
	}
	closest := rt.KClosest(target)
	return protocol.NewFindNodeResponse(selfID, routing.ToNodeTriples(closest), req.RPCID), nil
}

func handleStore(st store.Store, selfID id.ID, req *protocol.Message) *protocol.Message {
	data, ok := req.Data.(protocol.StorePayloadRequest)
	if !ok || data.Key == nil || data.Value == nil {
		log.Warn("STORE request missing key or value")
		return protocol.NewStoreResponse(selfID, false, req.RPCID)
	}
	st.Put(data.Key, data.Value)
	return protocol.NewStoreResponse(selfID, true, req.RPCID)
}

func handleFindValue(rt *routing.Table, st store.Store, selfID id.ID, req *protocol.Message) (*protocol.Message, error) {
	data, ok := req.Data.(protocol.FindValuePayloadRequest)
	if !ok || data.Key == nil {
		return nil, fmt.Errorf("handler: FIND_VALUE request missing key")
	}
	if value, found := st.Get(data.Key); found {
		return protocol.NewFindValueFoundResponse(selfID, value, req.RPCID), nil
	}
	target := id.FromBigInt(data.Key, selfID.Width)
	closest := rt.KClosest(target)
	return protocol.NewFindValueNotFoundResponse(selfID, routing.ToNodeTriples(closest), req.RPCID), nil
}
