// Package transport owns the node's UDP socket and the correlation
// mechanism between an outbound request and its response: one bound
// listening socket serving a background receive loop, and one fresh
// ephemeral socket per outbound call so a delayed, unrelated datagram can
// never be mistaken for the response to a different request.
//
// The receive loop and request path are kept deliberately simple: a
// synchronous request/response shape is all the Kademlia RPCs need,
// rather than a general net.PacketConn surface.
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the well-known UDP port every node listens on.
const DefaultPort = 1337

// ReceiveTickTimeout bounds how long the receive loop blocks on a single
// read before checking the stop flag again, so shutdown is observed
// within one tick.
const ReceiveTickTimeout = 1 * time.Second

// DefaultRequestTimeout is how long an outbound call waits for a response
// before giving up.
const DefaultRequestTimeout = 2 * time.Second

// MaxDatagramSize bounds a single read; larger than protocol.MaxMessageSize
// so an oversized or malformed datagram can still be read and rejected by
// the decoder rather than being silently truncated by the socket read.
const MaxDatagramSize = 4096

// ErrTimeout is returned by Request when no response arrives within the
// deadline. Callers treat it as a silent, non-fatal outcome rather than a
// failure worth surfacing.
var ErrTimeout = errors.New("transport: no response within timeout")

// Handler processes one received request datagram and returns the bytes
// to send back to its source, or nil to emit no response.
type Handler func(data []byte, from net.IP) []byte

// UDP owns the listening socket and exposes outbound request/response
// calls plus a background receive loop.
type UDP struct {
	conn     *net.UDPConn
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      *logrus.Entry
	listenIP string
	port     int
	serving  atomic.Bool
}

// Listen binds the listening socket on listenIP:port. If listenIP is
// empty, the zero value ("any interface") is used.
func Listen(listenIP string, port int) (*UDP, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(listenIP), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: binding %s:%d: %w", listenIP, port, err)
	}

	return &UDP{
		conn:     conn,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		listenIP: listenIP,
		port:     port,
		log: logrus.WithFields(logrus.Fields{
			"component": "transport.UDP",
			"addr":      conn.LocalAddr().String(),
		}),
	}, nil
}

// LocalAddr returns the listening socket's bound address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Serve runs the receive loop until Close is called. It should be run in
// its own goroutine. Every received datagram is handed to handler; if
// handler returns a non-nil response, it is sent back to the datagram's
// source address on the same listening socket.
func (u *UDP) Serve(handler Handler) {
	u.serving.Store(true)
	defer close(u.doneCh)

	buf := make([]byte, MaxDatagramSize)
	u.log.Info("receive loop starting")

	for {
		select {
		case <-u.stopCh:
			u.log.Info("receive loop stopping")
			return
		default:
		}

		if err := u.conn.SetReadDeadline(time.Now().Add(ReceiveTickTimeout)); err != nil {
			u.log.WithError(err).Warn("failed to set read deadline")
			continue
		}

		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-u.stopCh:
				return
			default:
			}
			u.log.WithError(err).Debug("receive error")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		resp := handler(data, addr.IP)
		if resp == nil {
			continue
		}
		if _, err := u.conn.WriteToUDP(resp, addr); err != nil {
			u.log.WithFields(logrus.Fields{
				"error": err.Error(),
				"to":    addr.String(),
			}).Warn("failed to send response")
		}
	}
}

// Close signals the receive loop to stop and waits for it to exit, then
// closes the listening socket. If Serve was never started, it only closes
// the socket.
func (u *UDP) Close() error {
	close(u.stopCh)
	if u.serving.Load() {
		<-u.doneCh
	}
	return u.conn.Close()
}

// Request sends data to addr on a fresh ephemeral socket and waits up to
// timeout for a single response datagram. It returns ErrTimeout (not a
// hard error) if nothing arrives in time.
func Request(addr string, data []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolving %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("transport: sending to %s: %w", addr, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("transport: setting read deadline: %w", err)
	}

	buf := make([]byte, MaxDatagramSize)
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("transport: reading response from %s: %w", addr, err)
	}

	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}
