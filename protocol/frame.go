package protocol

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ccamateur/botvana/errors"
)

// MaxFrameSize bounds one frame's payload. A BotConfiguration for even a
// very large fleet fits well under this.
const MaxFrameSize = 1 << 20

// envelope is the on-wire JSON shape of every frame.
type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Framed wraps a byte stream with message framing. Next is safe for a
// single reader; Send is safe for concurrent callers.
type Framed struct {
	r *bufio.Reader

	wmu sync.Mutex
	w   io.Writer
}

// NewFramed wraps rw, typically a net.Conn, with message framing.
func NewFramed(rw io.ReadWriter) *Framed {
	return &Framed{
		r: bufio.NewReader(rw),
		w: rw,
	}
}

// Send encodes m and writes it as one frame.
func (f *Framed) Send(m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.WrapInvalid(err, "Framed", "Send", "encode payload")
	}

	body, err := json.Marshal(envelope{Type: m.messageType(), Payload: payload})
	if err != nil {
		return errors.WrapInvalid(err, "Framed", "Send", "encode envelope")
	}
	if len(body) > MaxFrameSize {
		return errors.WrapInvalid(errors.ErrFrameTooLarge, "Framed", "Send", "frame size check")
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	f.wmu.Lock()
	defer f.wmu.Unlock()

	if _, err := f.w.Write(header[:]); err != nil {
		return errors.WrapTransient(err, "Framed", "Send", "write header")
	}
	if _, err := f.w.Write(body); err != nil {
		return errors.WrapTransient(err, "Framed", "Send", "write body")
	}
	return nil
}

// Next reads and decodes the next frame. It returns io.EOF when the
// stream ends cleanly on a frame boundary; any mid-frame end of input
// surfaces as io.ErrUnexpectedEOF. Frames with an unrecognized type
// decode to Unknown rather than an error.
func (f *Framed) Next() (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.WrapTransient(err, "Framed", "Next", "read header")
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes", errors.ErrFrameTooLarge, size),
			"Framed", "Next", "frame size check")
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(f.r, body); err != nil {
		return nil, errors.WrapTransient(err, "Framed", "Next", "read body")
	}

	return decode(body)
}

// decode unmarshals one frame body into its concrete message type.
func decode(body []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrDecodeFailed, err),
			"Framed", "Next", "decode envelope")
	}

	switch env.Type {
	case TypeHello:
		var m Hello
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, decodeError(env.Type, err)
		}
		return m, nil
	case TypePing:
		var m Ping
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, decodeError(env.Type, err)
		}
		return m, nil
	case TypePong:
		var m Pong
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, decodeError(env.Type, err)
		}
		return m, nil
	case TypeBotConfiguration:
		var m BotConfiguration
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, decodeError(env.Type, err)
		}
		return m, nil
	default:
		return Unknown{TypeName: string(env.Type)}, nil
	}
}

func decodeError(t Type, err error) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: type %q: %v", errors.ErrDecodeFailed, t, err),
		"Framed", "Next", "decode payload")
}
