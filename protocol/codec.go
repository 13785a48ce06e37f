package protocol

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/goccy/go-json"
)

// ErrOversized is returned by Encode when a message's wire form would
// exceed MaxMessageSize, and by Decode for a datagram longer than that.
var ErrOversized = errors.New("protocol: encoded message exceeds maximum size")

// envelope is the outer wire shape shared by every message, with data left
// raw so it can be decoded once Command is known.
type envelope struct {
	MsgType *MsgType        `json:"msgtype"`
	Command *Command        `json:"command"`
	Sender  *big.Int        `json:"sender"`
	RPCID   *big.Int        `json:"rpcid"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Encode serializes m into its wire form. Callers must not pass a message
// whose encoded size would exceed MaxMessageSize; Encode returns an error
// if it would.
func Encode(m *Message) ([]byte, error) {
	env := envelope{
		MsgType: &m.MsgType,
		Command: &m.Command,
		Sender:  m.Sender,
		RPCID:   m.RPCID,
	}
	if m.Data != nil {
		raw, err := json.Marshal(m.Data)
		if err != nil {
			return nil, fmt.Errorf("protocol: encoding data payload: %w", err)
		}
		env.Data = raw
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding message: %w", err)
	}
	if len(out) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrOversized, len(out), MaxMessageSize)
	}
	return out, nil
}

// Decode parses a wire-format message. It returns an error if the datagram
// exceeds MaxMessageSize, any required top-level key is missing, the
// msgtype is unrecognized, the command is unknown, or a command-specific
// data payload fails to parse.
func Decode(data []byte) (*Message, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrOversized, len(data), MaxMessageSize)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decoding envelope: %w", err)
	}

	if env.MsgType == nil {
		return nil, fmt.Errorf("protocol: missing required key %q", "msgtype")
	}
	if *env.MsgType != Req && *env.MsgType != Resp {
		return nil, fmt.Errorf("protocol: unknown msgtype %q", *env.MsgType)
	}
	if env.Command == nil {
		return nil, fmt.Errorf("protocol: missing required key %q", "command")
	}
	if !validCommand(*env.Command) {
		return nil, fmt.Errorf("protocol: unknown command %d", int(*env.Command))
	}
	if env.Sender == nil {
		return nil, fmt.Errorf("protocol: missing required key %q", "sender")
	}
	if env.RPCID == nil {
		return nil, fmt.Errorf("protocol: missing required key %q", "rpcid")
	}

	msg := &Message{
		MsgType: *env.MsgType,
		Command: *env.Command,
		Sender:  env.Sender,
		RPCID:   env.RPCID,
	}

	payload, err := decodePayload(*env.Command, *env.MsgType, env.Data)
	if err != nil {
		return nil, err
	}
	msg.Data = payload

	return msg, nil
}

func decodePayload(cmd Command, mt MsgType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		if cmd == Ping {
			return nil, nil
		}
		// Absent data is treated as empty for every command; individual
		// handlers validate required fields themselves (e.g. STORE
		// without key/value responds result=false rather than failing
		// decode).
	}

	switch cmd {
	case Ping:
		return nil, nil
	case Store:
		if mt == Req {
			var p StorePayloadRequest
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &p); err != nil {
					return nil, fmt.Errorf("protocol: decoding STORE request data: %w", err)
				}
			}
			return p, nil
		}
		var p StorePayloadResponse
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("protocol: decoding STORE response data: %w", err)
			}
		}
		return p, nil
	case FindNode:
		if mt == Req {
			var p FindNodePayloadRequest
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &p); err != nil {
					return nil, fmt.Errorf("protocol: decoding FIND_NODE request data: %w", err)
				}
			}
			return p, nil
		}
		var p FindNodePayloadResponse
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("protocol: decoding FIND_NODE response data: %w", err)
			}
		}
		return p, nil
	case FindValue:
		if mt == Req {
			var p FindValuePayloadRequest
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &p); err != nil {
					return nil, fmt.Errorf("protocol: decoding FIND_VALUE request data: %w", err)
				}
			}
			return p, nil
		}
		return decodeFindValueResponse(raw)
	default:
		return nil, fmt.Errorf("protocol: unknown command %d", int(cmd))
	}
}

// decodeFindValueResponse decodes a FIND_VALUE response. The found/
// not-found distinction is resolved by FindValuePayloadResponse's own
// UnmarshalJSON, which checks for the presence of the "value" key rather
// than whether the decoded value happens to be non-empty.
func decodeFindValueResponse(raw json.RawMessage) (Payload, error) {
	var p FindValuePayloadResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("protocol: decoding FIND_VALUE response data: %w", err)
		}
	}
	return p, nil
}
