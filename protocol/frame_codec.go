// File: protocol/frame_codec.go
// Package protocol implements zero-copy frame decoding and server frame encoding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client frames are decoded in place from the connection's receive buffer.
// Header policy (FIN, opcode, mask) is checked as soon as the first two
// bytes are present so a bad frame is refused before its payload arrives.

package protocol

import (
	"encoding/binary"
	"math"
)

// Header is a parsed frame header.
type Header struct {
	Fin     bool
	Opcode  byte
	Masked  bool
	Length  uint64
	MaskKey [4]byte
	Size    int // encoded header length in bytes
}

// Frame is a decoded frame. Payload aliases the buffer it was decoded from.
type Frame struct {
	Header
	Payload []byte
}

// ParseHeader validates and parses a client frame header.
// It returns ErrIncomplete until the whole header is buffered, or a
// *CloseError naming the close code the connection must be closed with.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < 2 {
		return Header{}, ErrIncomplete
	}
	b0, b1 := buf[0], buf[1]
	opcode := b0 & OpcodeMask
	switch {
	case b0&FinBit == 0:
		return Header{}, closeErr(CloseUnsupportedData, "fragmented frames are not supported")
	case opcode == OpcodeClose:
		return Header{}, closeErr(CloseNormalClosure, "peer closed the connection")
	case opcode != OpcodeText && opcode != OpcodePing:
		return Header{}, closeErr(CloseUnsupportedData, "only text and ping frames are accepted")
	case b1&MaskBit == 0:
		return Header{}, closeErr(CloseProtocolError, "client frame is not masked")
	}

	h, err := parseRaw(buf)
	if err != nil {
		return Header{}, err
	}
	if h.Opcode == OpcodePing && h.Length > MaxControlPayloadLen {
		return Header{}, closeErr(CloseProtocolError, "ping payload exceeds 125 bytes")
	}
	return h, nil
}

// DecodeFrame decodes one client frame from the start of buf and unmasks its
// payload in place. n is the number of bytes the frame occupies. A payload
// longer than maxPayload (when maxPayload > 0) is refused with
// CloseGoingAway because no receive buffer is sized for it.
func DecodeFrame(buf []byte, maxPayload int) (f Frame, n int, err error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return Frame{}, 0, err
	}
	if maxPayload > 0 && h.Length > uint64(maxPayload) {
		return Frame{}, 0, closeErr(CloseGoingAway, "payload exceeds receive buffer limit")
	}
	total := uint64(h.Size) + h.Length
	if uint64(len(buf)) < total {
		return Frame{}, 0, ErrIncomplete
	}
	payload := buf[h.Size:total]
	Unmask(payload, h.MaskKey)
	return Frame{Header: h, Payload: payload}, int(total), nil
}

// DecodeServerFrame decodes one frame without client policy checks. It is
// the client-side view of frames built by the Append functions.
func DecodeServerFrame(buf []byte) (f Frame, n int, err error) {
	h, err := parseRaw(buf)
	if err != nil {
		return Frame{}, 0, err
	}
	total := uint64(h.Size) + h.Length
	if uint64(len(buf)) < total {
		return Frame{}, 0, ErrIncomplete
	}
	payload := make([]byte, h.Length)
	copy(payload, buf[h.Size:total])
	if h.Masked {
		Unmask(payload, h.MaskKey)
	}
	return Frame{Header: h, Payload: payload}, int(total), nil
}

// parseRaw decodes the structural header fields.
func parseRaw(buf []byte) (Header, error) {
	if len(buf) < 2 {
		return Header{}, ErrIncomplete
	}
	h := Header{
		Fin:    buf[0]&FinBit != 0,
		Opcode: buf[0] & OpcodeMask,
		Masked: buf[1]&MaskBit != 0,
		Length: uint64(buf[1] & LengthMask),
	}
	offset := 2
	switch h.Length {
	case len16Marker:
		if len(buf) < offset+2 {
			return Header{}, ErrIncomplete
		}
		h.Length = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case len64Marker:
		if len(buf) < offset+8 {
			return Header{}, ErrIncomplete
		}
		h.Length = binary.BigEndian.Uint64(buf[offset:])
		if h.Length > math.MaxInt64 {
			return Header{}, closeErr(CloseProtocolError, "64-bit payload length has the high bit set")
		}
		offset += 8
	}
	if h.Masked {
		if len(buf) < offset+4 {
			return Header{}, ErrIncomplete
		}
		copy(h.MaskKey[:], buf[offset:offset+4])
		offset += 4
	}
	h.Size = offset
	return h, nil
}

// Unmask XORs p with key in place; byte i uses key[i%4]. Masking and
// unmasking are the same operation.
func Unmask(p []byte, key [4]byte) {
	for i := range p {
		p[i] ^= key[i&3]
	}
}

// AppendFrame appends an unmasked, final frame with the given opcode.
func AppendFrame(dst []byte, opcode byte, payload []byte) []byte {
	b0 := byte(FinBit) | (opcode & OpcodeMask)
	plen := len(payload)
	switch {
	case plen <= MaxControlPayloadLen:
		dst = append(dst, b0, byte(plen))
	case plen <= math.MaxUint16:
		dst = append(dst, b0, len16Marker)
		dst = binary.BigEndian.AppendUint16(dst, uint16(plen))
	default:
		dst = append(dst, b0, len64Marker)
		dst = binary.BigEndian.AppendUint64(dst, uint64(plen))
	}
	return append(dst, payload...)
}

// AppendText appends a text frame carrying payload. An empty payload
// produces nothing.
func AppendText(dst []byte, payload []byte) []byte {
	if len(payload) == 0 {
		return dst
	}
	return AppendFrame(dst, OpcodeText, payload)
}

// AppendPong appends a pong frame echoing payload.
func AppendPong(dst []byte, payload []byte) []byte {
	return AppendFrame(dst, OpcodePong, payload)
}

// AppendClose appends a close frame with a 2-byte status code.
func AppendClose(dst []byte, code CloseCode) []byte {
	var status [2]byte
	binary.BigEndian.PutUint16(status[:], uint16(code))
	return AppendFrame(dst, OpcodeClose, status[:])
}

// HeaderLen returns the encoded header size of a server frame with plen
// payload bytes.
func HeaderLen(plen int) int {
	switch {
	case plen <= MaxControlPayloadLen:
		return 2
	case plen <= math.MaxUint16:
		return 4
	default:
		return 10
	}
}
