package routing

import (
	"net"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/protocol"
)

// ToNodeTriples converts contacts into their [ip, port, id] wire shape for
// FIND_NODE/FIND_VALUE responses.
func ToNodeTriples(contacts []Contact) []protocol.NodeTriple {
	out := make([]protocol.NodeTriple, len(contacts))
	for i, c := range contacts {
		out[i] = protocol.NodeTriple{IP: c.IP.String(), Port: c.Port, ID: c.ID.BigInt()}
	}
	return out
}

// FromNodeTriples converts wire-shaped node triples back into contacts of
// the given identifier width.
func FromNodeTriples(triples []protocol.NodeTriple, width int) []Contact {
	out := make([]Contact, 0, len(triples))
	for _, t := range triples {
		out = append(out, Contact{
			IP:   net.ParseIP(t.IP),
			Port: t.Port,
			ID:   id.FromBigInt(t.ID, width),
		})
	}
	return out
}
