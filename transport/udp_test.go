package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServeEchoesHandlerResponse(t *testing.T) {
	u, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer u.Close()

	go u.Serve(func(data []byte, from net.IP) []byte {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	})

	addr := u.LocalAddr().String()
	resp, err := Request(addr, []byte("ping"), time.Second)
	require.NoError(t, err)
	require.Equal(t, "ping", string(resp))
}

func TestServeDropsDatagramOnNilResponse(t *testing.T) {
	u, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer u.Close()

	go u.Serve(func(data []byte, from net.IP) []byte {
		return nil
	})

	addr := u.LocalAddr().String()
	_, err = Request(addr, []byte("ping"), 200*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestRequestFailsWhenNothingListening(t *testing.T) {
	// Bind and immediately close to get a port nothing is listening on.
	u, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	addr := u.LocalAddr().String()
	require.NoError(t, u.Close())

	_, err = Request(addr, []byte("ping"), 200*time.Millisecond)
	require.Error(t, err)
}

func TestCloseStopsReceiveLoopPromptly(t *testing.T) {
	u, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)

	go u.Serve(func(data []byte, from net.IP) []byte { return nil })

	done := make(chan struct{})
	go func() {
		u.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * ReceiveTickTimeout):
		t.Fatalf("Close did not return within one receive tick")
	}
}
