// Package node wires the routing table, transport, store, request handler,
// and lookup engine into the operations a CLI or other driver invokes:
// Ping, JoinNetwork, StoreValue, GetValue, and lifecycle Start/Close.
//
// Node composes these as a single top-level type wiring its routing,
// transport, and storage packages together behind a small public surface.
package node

import (
	"context"
	"crypto/sha1" //nolint:gosec // used only for key derivation, not security
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/shabnasiraj/d7024e-dhtnode/handler"
	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/lookup"
	"github.com/shabnasiraj/d7024e-dhtnode/protocol"
	"github.com/shabnasiraj/d7024e-dhtnode/routing"
	"github.com/shabnasiraj/d7024e-dhtnode/store"
	"github.com/shabnasiraj/d7024e-dhtnode/transport"
	"github.com/sirupsen/logrus"
)

// IDWidth is the production identifier width in bits.
const IDWidth = 160

// Config configures a new Node.
type Config struct {
	// ListenIP is the local address to bind the listening socket to. If
	// empty, the resolved local hostname's address is used.
	ListenIP string
	// Port is the well-known UDP port to bind and to assume every peer
	// listens on. Defaults to transport.DefaultPort.
	Port int
	// IDWidth is the node identifier bit width. Defaults to 160; tests
	// may use a much smaller width.
	IDWidth int
	// SelfID overrides the randomly generated node identifier, primarily
	// for tests needing deterministic ids.
	SelfID *id.ID
	// RequestTimeout bounds how long an outbound RPC waits for a
	// response. Defaults to transport.DefaultRequestTimeout.
	RequestTimeout time.Duration
	// K is the routing table's bucket capacity. Defaults to routing.DefaultK.
	K int
}

// Node is a single Kademlia DHT participant.
type Node struct {
	self    id.ID
	cfg     Config
	rt      *routing.Table
	st      store.Store
	udp     *transport.UDP
	log     *logrus.Entry
	started bool
}

// New constructs a Node bound to its listening socket but not yet serving
// requests; call Start to begin the receive loop.
func New(cfg Config) (*Node, error) {
	width := cfg.IDWidth
	if width == 0 {
		width = IDWidth
	}
	port := cfg.Port
	if port == 0 {
		port = transport.DefaultPort
	}

	self, err := resolveSelfID(cfg.SelfID, width)
	if err != nil {
		return nil, err
	}

	listenIP, err := resolveListenIP(cfg.ListenIP)
	if err != nil {
		return nil, err
	}

	udp, err := transport.Listen(listenIP, port)
	if err != nil {
		return nil, err
	}

	cfg.IDWidth = width
	cfg.Port = port
	cfg.ListenIP = listenIP

	n := &Node{
		self: self,
		cfg:  cfg,
		rt:   routing.New(self, cfg.K),
		st:   store.NewMemory(),
		udp:  udp,
		log: logrus.WithFields(logrus.Fields{
			"component": "node.Node",
			"self":      self.String(),
		}),
	}
	n.log.WithField("listen_addr", udp.LocalAddr().String()).Info("node initialized")
	return n, nil
}

func resolveSelfID(override *id.ID, width int) (id.ID, error) {
	if override != nil {
		return *override, nil
	}
	return id.NewRandom(width)
}

// resolveListenIP resolves the local hostname to an address when no
// explicit listen address is given. If that fails, binding to "" (any
// interface) is an acceptable fallback — net.ListenUDP treats it as
// INADDR_ANY.
func resolveListenIP(listenIP string) (string, error) {
	if listenIP != "" {
		return listenIP, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", nil
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return "", nil
	}
	return addrs[0], nil
}

// Self returns the node's identifier.
func (n *Node) Self() id.ID {
	return n.self
}

// RoutingTable exposes the node's routing table, primarily for CLI
// status output (peer counts) and tests.
func (n *Node) RoutingTable() *routing.Table {
	return n.rt
}

// Start begins the background receive loop. It returns immediately; the
// loop runs until Close is called.
func (n *Node) Start() {
	if n.started {
		return
	}
	n.started = true
	go n.udp.Serve(n.serveOne)
}

// Close stops the receive loop and releases the listening socket.
func (n *Node) Close() error {
	return n.udp.Close()
}

func (n *Node) serveOne(data []byte, from net.IP) []byte {
	req, err := protocol.Decode(data)
	if err != nil {
		n.log.WithFields(logrus.Fields{
			"error": err.Error(),
			"from":  from.String(),
		}).Warn("dropping malformed datagram")
		return nil
	}

	resp, err := handler.Dispatch(n.rt, n.st, n.self, n.cfg.Port, req, from)
	if err != nil {
		n.log.WithFields(logrus.Fields{
			"error": err.Error(),
			"from":  from.String(),
		}).Warn("request handler failed")
		return nil
	}
	if resp == nil {
		return nil
	}

	out, err := protocol.Encode(resp)
	if err != nil {
		n.log.WithError(err).Error("failed to encode response")
		return nil
	}
	return out
}

// Ping sends a PING to ip:port and, on response, returns the sender's id
// and inserts the contact into the routing table at the canonical
// listening port.
func (n *Node) Ping(ip string, port int) (*id.ID, error) {
	req, err := protocol.NewPingRequest(n.self)
	if err != nil {
		return nil, err
	}

	resp, err := n.roundTrip(ip, port, req)
	if err != nil {
		n.log.WithFields(logrus.Fields{"ip": ip, "port": port, "error": err.Error()}).Warn("ping failed")
		return nil, nil //nolint:nilerr // no response within the timeout is a non-error outcome
	}

	sender := id.FromBigInt(resp.Sender, n.cfg.IDWidth)
	n.rt.Add(routing.Contact{IP: net.ParseIP(ip), Port: n.cfg.Port, ID: sender})
	return &sender, nil
}

// JoinNetwork repeatedly pings seedIP until it responds, then returns.
func (n *Node) JoinNetwork(ctx context.Context, seedIP string) error {
	n.log.WithField("seed", seedIP).Info("joining network")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		senderID, err := n.Ping(seedIP, n.cfg.Port)
		if err == nil && senderID != nil {
			n.log.Info("joined network")
			return nil
		}

		n.log.Warn("failed to join network, retrying in 1 second")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// StoreResult is returned by StoreValue.
type StoreResult struct {
	Key     id.ID
	Success int
}

// StoreValue computes key = SHA-1(value) mod 2^width, performs a node
// lookup for key, and STOREs the value on every contact the lookup
// converges on. It returns nil if the lookup found no contacts to store
// to (an empty routing table).
func (n *Node) StoreValue(ctx context.Context, value []byte) (*StoreResult, error) {
	key := n.deriveKey(value)

	res, err := lookup.Run(ctx, n.rt, n.caller(), key, false)
	if err != nil {
		n.log.WithError(err).Warn("node lookup failed for store")
		return nil, nil
	}

	success := 0
	for _, c := range res.Closest {
		if n.storeOn(c, key, value) {
			success++
		}
	}
	return &StoreResult{Key: key, Success: success}, nil
}

func (n *Node) storeOn(c routing.Contact, key id.ID, value []byte) bool {
	req, err := protocol.NewStoreRequest(n.self, key, value)
	if err != nil {
		n.log.WithError(err).Error("failed to build STORE request")
		return false
	}
	resp, err := n.roundTrip(c.IP.String(), c.Port, req)
	if err != nil {
		n.log.WithFields(logrus.Fields{"to": c.ID.String(), "error": err.Error()}).Warn("STORE timed out")
		return false
	}
	data, ok := resp.Data.(protocol.StorePayloadResponse)
	return ok && data.Result
}

// GetResult is returned by GetValue: exactly one of Value or Closest is
// populated.
type GetResult struct {
	Value   []byte
	Found   bool
	Closest []routing.Contact
}

// GetValue performs a find-value node lookup for key.
func (n *Node) GetValue(ctx context.Context, key id.ID) (*GetResult, error) {
	key = id.FromBigInt(key.BigInt(), n.cfg.IDWidth)

	res, err := lookup.Run(ctx, n.rt, n.caller(), key, true)
	if err != nil {
		n.log.WithError(err).Warn("node lookup failed for get")
		return nil, nil
	}
	if res.Found {
		return &GetResult{Value: res.Value, Found: true}, nil
	}
	return &GetResult{Closest: res.Closest}, nil
}

func (n *Node) deriveKey(value []byte) id.ID {
	sum := sha1.Sum(value)
	full := new(big.Int).SetBytes(sum[:])
	return id.FromBigInt(full, n.cfg.IDWidth)
}

func (n *Node) roundTrip(ip string, port int, req *protocol.Message) (*protocol.Message, error) {
	out, err := protocol.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("node: encoding request: %w", err)
	}

	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	raw, err := transport.Request(addr, out, n.requestTimeout())
	if err != nil {
		return nil, err
	}

	resp, err := protocol.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("node: decoding response: %w", err)
	}
	if resp.RPCID.Cmp(req.RPCID) != 0 {
		n.log.WithFields(logrus.Fields{
			"expected": req.RPCID.String(),
			"got":      resp.RPCID.String(),
		}).Error("rpc id mismatch, discarding response")
		return nil, fmt.Errorf("node: rpc id mismatch")
	}
	return resp, nil
}

func (n *Node) requestTimeout() time.Duration {
	if n.cfg.RequestTimeout > 0 {
		return n.cfg.RequestTimeout
	}
	return transport.DefaultRequestTimeout
}
