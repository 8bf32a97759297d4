package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec selects how a client's messages are framed. JSON travels as text
// messages, msgpack as binary ones.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

var ErrUnknownCodec = errors.New("unknown codec")

// ParseCodec maps the ?codec= query value; empty means JSON.
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case "", CodecJSON:
		return CodecJSON, nil
	case CodecMsgpack:
		return CodecMsgpack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCodec, s)
}

// Message types sent to clients.
const (
	TypeFrame  = "frame"
	TypeResult = "result"
	TypeEvent  = "event"
	TypeError  = "error"
	TypeClosed = "session_closed"
)

// Envelope is every server-to-client message.
type Envelope struct {
	Type    string      `json:"type" msgpack:"type"`
	Seq     int64       `json:"seq,omitempty" msgpack:"seq,omitempty"`
	Data    interface{} `json:"data,omitempty" msgpack:"data,omitempty"`
	Message string      `json:"message,omitempty" msgpack:"message,omitempty"`
}

// WSMessage is a client command: Type is a command name such as "place" and
// Data its fields.
type WSMessage struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq,omitempty"`
	Data json.RawMessage `json:"data"`
}

type binaryMessage struct {
	Type string             `msgpack:"type"`
	Seq  int64              `msgpack:"seq,omitempty"`
	Data msgpack.RawMessage `msgpack:"data"`
}

const msgpackNil = 0xc0

type outbound struct {
	kind int
	data []byte
}

// Encode frames v for the wire.
func (c Codec) Encode(v interface{}) (outbound, error) {
	if c == CodecMsgpack {
		b, err := msgpack.Marshal(v)
		return outbound{kind: websocket.BinaryMessage, data: b}, err
	}
	b, err := json.Marshal(v)
	return outbound{kind: websocket.TextMessage, data: b}, err
}

// Decode parses one client message into its command. seq is returned even
// when the command itself is malformed so the error can be correlated.
func (c Codec) Decode(raw []byte) (cmd game.Command, seq int64, err error) {
	var (
		name string
		data []byte
	)
	if c == CodecMsgpack {
		var m binaryMessage
		if err := msgpack.Unmarshal(raw, &m); err != nil {
			return nil, 0, fmt.Errorf("decode message: %w", err)
		}
		name, seq, data = m.Type, m.Seq, m.Data
	} else {
		var m WSMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, 0, fmt.Errorf("decode message: %w", err)
		}
		name, seq, data = m.Type, m.Seq, m.Data
	}
	cmd, err = c.DecodeCommand(name, data)
	return cmd, seq, err
}

// DecodeCommand builds the named command and fills it from data. Empty data
// leaves the command's defaults.
func (c Codec) DecodeCommand(name string, data []byte) (game.Command, error) {
	cmd, err := game.NewCommand(name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" || (len(data) == 1 && data[0] == msgpackNil) {
		return cmd, nil
	}
	if c == CodecMsgpack {
		err = msgpack.Unmarshal(data, cmd)
	} else {
		err = json.Unmarshal(data, cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", name, err)
	}
	return cmd, nil
}
