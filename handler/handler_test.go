package handler

import (
	"math/big"
	"net"
	"testing"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/protocol"
	"github.com/shabnasiraj/d7024e-dhtnode/routing"
	"github.com/shabnasiraj/d7024e-dhtnode/store"
	"github.com/stretchr/testify/require"
)

const width = 8

func TestHandlePingRespondsWithSameRPCID(t *testing.T) {
	self := id.New(1, width)
	rt := routing.New(self, 3)
	st := store.NewMemory()

	req, err := protocol.NewPingRequest(id.New(2, width))
	require.NoError(t, err)

	resp, err := Dispatch(rt, st, self, 1337, req, net.ParseIP("1.2.3.4"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, protocol.Resp, resp.MsgType)
	require.Equal(t, protocol.Ping, resp.Command)
	require.Equal(t, 0, resp.RPCID.Cmp(req.RPCID))

	learned, ok := rt.Get(id.New(2, width))
	require.True(t, ok)
	require.Equal(t, 1337, learned.Port) // canonical listening port, not ephemeral source port
	require.Equal(t, "1.2.3.4", learned.IP.String())
}

func TestHandleFindNodeReturnsKClosest(t *testing.T) {
	self := id.New(0, width)
	rt := routing.New(self, 20)
	st := store.NewMemory()

	rt.Add(routing.Contact{IP: net.ParseIP("1.1.1.1"), Port: 1337, ID: id.New(5, width)})
	rt.Add(routing.Contact{IP: net.ParseIP("2.2.2.2"), Port: 1337, ID: id.New(200, width)})

	req, err := protocol.NewFindNodeRequest(id.New(9, width), id.New(4, width))
	require.NoError(t, err)

	resp, err := Dispatch(rt, st, self, 1337, req, net.ParseIP("9.9.9.9"))
	require.NoError(t, err)

	data, ok := resp.Data.(protocol.FindNodePayloadResponse)
	require.True(t, ok)
	require.NotEmpty(t, data.Nodes)
}

func TestHandleStoreRejectsMissingFields(t *testing.T) {
	self := id.New(0, width)
	rt := routing.New(self, 3)
	st := store.NewMemory()

	req := &protocol.Message{
		MsgType: protocol.Req,
		Command: protocol.Store,
		Sender:  big.NewInt(1),
		RPCID:   big.NewInt(1),
		Data:    protocol.StorePayloadRequest{Key: big.NewInt(1)}, // missing value
	}

	resp, err := Dispatch(rt, st, self, 1337, req, net.ParseIP("1.1.1.1"))
	require.NoError(t, err)

	data, ok := resp.Data.(protocol.StorePayloadResponse)
	require.True(t, ok)
	require.False(t, data.Result)
}

func TestHandleStoreThenFindValueRoundTrip(t *testing.T) {
	self := id.New(0, width)
	rt := routing.New(self, 3)
	st := store.NewMemory()

	storeReq, err := protocol.NewStoreRequest(id.New(1, width), id.New(42, width), []byte("payload"))
	require.NoError(t, err)
	storeResp, err := Dispatch(rt, st, self, 1337, storeReq, net.ParseIP("1.1.1.1"))
	require.NoError(t, err)
	require.True(t, storeResp.Data.(protocol.StorePayloadResponse).Result)

	fvReq, err := protocol.NewFindValueRequest(id.New(1, width), id.New(42, width))
	require.NoError(t, err)
	fvResp, err := Dispatch(rt, st, self, 1337, fvReq, net.ParseIP("1.1.1.1"))
	require.NoError(t, err)

	data, ok := fvResp.Data.(protocol.FindValuePayloadResponse)
	require.True(t, ok)
	require.True(t, data.Found)
	require.Equal(t, "payload", string(data.Value))
}

func TestHandleFindValueNotFoundReturnsClosest(t *testing.T) {
	self := id.New(0, width)
	rt := routing.New(self, 3)
	rt.Add(routing.Contact{IP: net.ParseIP("3.3.3.3"), Port: 1337, ID: id.New(8, width)})
	st := store.NewMemory()

	req, err := protocol.NewFindValueRequest(id.New(1, width), id.New(250, width))
	require.NoError(t, err)

	resp, err := Dispatch(rt, st, self, 1337, req, net.ParseIP("1.1.1.1"))
	require.NoError(t, err)

	data, ok := resp.Data.(protocol.FindValuePayloadResponse)
	require.True(t, ok)
	require.False(t, data.Found)
	require.NotEmpty(t, data.Nodes)
}
