package node

import (
	"context"
	"fmt"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/lookup"
	"github.com/shabnasiraj/d7024e-dhtnode/protocol"
	"github.com/shabnasiraj/d7024e-dhtnode/routing"
)

// nodeCaller adapts Node's roundTrip machinery to the lookup.Caller
// interface, so the lookup engine can issue FIND_NODE/FIND_VALUE probes
// without knowing anything about sockets or the wire encoding.
type nodeCaller struct {
	n *Node
}

func (n *Node) caller() lookup.Caller {
	return &nodeCaller{n: n}
}

func (c *nodeCaller) Probe(ctx context.Context, target routing.Contact, lookupTarget id.ID, findValue bool) (*lookup.FindNodeResult, error) {
	var (
		req *protocol.Message
		err error
	)
	if findValue {
		req, err = protocol.NewFindValueRequest(c.n.self, lookupTarget)
	} else {
		req, err = protocol.NewFindNodeRequest(c.n.self, lookupTarget)
	}
	if err != nil {
		return nil, err
	}

	resp, err := c.n.roundTrip(target.IP.String(), target.Port, req)
	if err != nil {
		return nil, err
	}

	if findValue {
		data, ok := resp.Data.(protocol.FindValuePayloadResponse)
		if !ok {
			return nil, fmt.Errorf("node: unexpected FIND_VALUE response shape")
		}
		if data.Found {
			return &lookup.FindNodeResult{Value: data.Value, Found: true}, nil
		}
		return &lookup.FindNodeResult{Nodes: routing.FromNodeTriples(data.Nodes, c.n.cfg.IDWidth)}, nil
	}

	data, ok := resp.Data.(protocol.FindNodePayloadResponse)
	if !ok {
		return nil, fmt.Errorf("node: unexpected FIND_NODE response shape")
	}
	return &lookup.FindNodeResult{Nodes: routing.FromNodeTriples(data.Nodes, c.n.cfg.IDWidth)}, nil
}
