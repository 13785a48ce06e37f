package protocol

import (
	"math/big"

	"github.com/goccy/go-json"
)

// PingPayload carries no data in either direction.
type PingPayload struct{}

func (PingPayload) isPayload() {}

// StorePayloadRequest asks the recipient to hold value under key.
type StorePayloadRequest struct {
	Key   *big.Int `json:"key"`
	Value []byte   `json:"value"`
}

func (StorePayloadRequest) isPayload() {}

// StorePayloadResponse reports whether the STORE succeeded.
type StorePayloadResponse struct {
	Result bool `json:"result"`
}

func (StorePayloadResponse) isPayload() {}

// FindNodePayloadRequest asks for the closest contacts to NodeID.
type FindNodePayloadRequest struct {
	NodeID *big.Int `json:"nodeid"`
}

func (FindNodePayloadRequest) isPayload() {}

// NodeTriple is the wire shape of one contact: [ip, port, id].
type NodeTriple struct {
	IP   string
	Port int
	ID   *big.Int
}

// MarshalJSON encodes a NodeTriple as a 3-element JSON array, matching the
// [[ip, port, id], ...] wire shape specified for FIND_NODE/FIND_VALUE
// responses.
func (n NodeTriple) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{n.IP, n.Port, n.ID})
}

// UnmarshalJSON decodes a 3-element [ip, port, id] JSON array into a
// NodeTriple.
func (n *NodeTriple) UnmarshalJSON(data []byte) error {
	var raw [3]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &n.IP); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &n.Port); err != nil {
		return err
	}
	n.ID = new(big.Int)
	return json.Unmarshal(raw[2], n.ID)
}

// FindNodePayloadResponse carries the closest contacts the responder knows.
type FindNodePayloadResponse struct {
	Nodes []NodeTriple `json:"nodes"`
}

func (FindNodePayloadResponse) isPayload() {}

// FindValuePayloadRequest asks for a stored value, or the closest contacts
// if the key isn't held locally.
type FindValuePayloadRequest struct {
	Key *big.Int `json:"key"`
}

func (FindValuePayloadRequest) isPayload() {}

// FindValuePayloadResponse carries either a found Value (Found true) or the
// closest known Nodes (Found false). Found is the discriminant between the
// two cases; on the wire it is carried by which key ("value" or "nodes") is
// present. It must be consulted instead of a nil/empty check on Value,
// since a stored value of zero length is a legitimate found result.
type FindValuePayloadResponse struct {
	Value []byte
	Nodes []NodeTriple
	Found bool
}

func (FindValuePayloadResponse) isPayload() {}

// MarshalJSON emits a "value" key when Found is true (even for a
// zero-length Value) and a "nodes" key otherwise, so the wire shape
// itself carries the found/not-found distinction rather than relying on
// whether Value happens to be non-empty.
func (p FindValuePayloadResponse) MarshalJSON() ([]byte, error) {
	if p.Found {
		return json.Marshal(struct {
			Value []byte `json:"value"`
		}{p.Value})
	}
	return json.Marshal(struct {
		Nodes []NodeTriple `json:"nodes,omitempty"`
	}{p.Nodes})
}

// UnmarshalJSON distinguishes a found-value response from a
// closest-nodes response by checking which key is present in the raw
// object, not by whether the decoded Value is non-nil — an empty stored
// value must still decode as Found.
func (p *FindValuePayloadResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["value"]; ok {
		if err := json.Unmarshal(v, &p.Value); err != nil {
			return err
		}
		p.Found = true
		return nil
	}
	if n, ok := raw["nodes"]; ok {
		if err := json.Unmarshal(n, &p.Nodes); err != nil {
			return err
		}
	}
	p.Found = false
	return nil
}
