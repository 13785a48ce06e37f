// Package routing implements the XOR-distance k-bucket routing table that
// tracks the set of peers a Kademlia node currently knows about.
//
// The table is a fixed array of id.Width buckets, indexed by floor(log2) of
// the XOR distance between the local identifier and a candidate peer.
// It is the structure every other component in this module consults to
// decide who to talk to next: the request handler inserts the sender of
// every received RPC, and the lookup engine both reads n-closest contacts
// to seed a round and inserts everything it learns about along the way.
package routing

import (
	"net"
	"strconv"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
)

// Contact identifies a single peer: its UDP endpoint and node identifier.
// Two contacts are equal iff their IDs are equal; IP and Port do not take
// part in identity. Table.Add keeps the first-learned IP and Port for an id
// and does not update them when the id is learned again.
type Contact struct {
	IP   net.IP
	Port int
	ID   id.ID
}

// Addr renders the contact's UDP endpoint as a dial-able address string.
func (c Contact) Addr() string {
	return net.JoinHostPort(c.IP.String(), strconv.Itoa(c.Port))
}
