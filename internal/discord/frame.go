package discord

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Opcode identifies the kind of an IPC frame.
type Opcode uint32

const (
	OpHandshake Opcode = 0
	OpFrame     Opcode = 1
	OpClose     Opcode = 2
	OpPing      Opcode = 3
	OpPong      Opcode = 4
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "handshake"
	case OpFrame:
		return "frame"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", uint32(o))
	}
}

// maxFrameSize bounds the payload accepted from the socket.
const maxFrameSize = 1 << 20

const headerSize = 8

// ErrFrameTooLarge is returned when a frame header announces an oversized payload.
var ErrFrameTooLarge = errors.New("ipc frame too large")

// Frame is a single IPC message: opcode, length, JSON payload.
type Frame struct {
	Op      Opcode
	Payload []byte
}

// WriteFrame encodes v as JSON and writes it with the frame header.
func WriteFrame(w io.Writer, op Opcode, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", op, err)
	}
	return writeRaw(w, op, payload)
}

func writeRaw(w io.Writer, op Opcode, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("failed to read %s payload: %w", op, err)
	}
	return Frame{Op: op, Payload: payload}, nil
}

// Decode unmarshals the frame payload.
func (f Frame) Decode(v any) error {
	return json.Unmarshal(f.Payload, v)
}
