// Package packet implements the framed request/response wire protocol
// (C1): a three-byte header (command, total length, channel) followed by
// length-3 payload bytes, plus the resyncing receiver loop that recovers
// from a byte stream that lost synchronization.
//
// Grounded in original_source/firmware/packet.c/.h and wireformat.h.
package packet

import (
	"fmt"

	"github.com/xd2031/core/wireformat"
)

// MinLen is the minimum legal packet length (header only, empty payload).
const MinLen = wireformat.HeaderLen

// Packet is one framed message: a command, the channel it is addressed to
// or originates from, and its payload.
type Packet struct {
	Cmd     wireformat.Command
	Channel int8
	Payload []byte
}

// New builds a packet, validating the payload fits the negotiated maximum
// (spec §4.1: "payloads larger than the negotiated maximum must be
// rejected by the caller before send").
func New(cmd wireformat.Command, channel int8, payload []byte) (Packet, error) {
	if len(payload) > wireformat.MaxPayload {
		return Packet{}, fmt.Errorf("packet: payload length %d exceeds max %d", len(payload), wireformat.MaxPayload)
	}
	return Packet{Cmd: cmd, Channel: channel, Payload: payload}, nil
}

// Len is the total on-wire length including the three header bytes.
func (p Packet) Len() int {
	return wireformat.HeaderLen + len(p.Payload)
}

// IsEOF reports whether this packet marks the last chunk of a data stream.
func (p Packet) IsEOF() bool {
	return p.Cmd.IsEOF()
}

// Marshal serializes p to its wire representation.
func (p Packet) Marshal() ([]byte, error) {
	if len(p.Payload) > wireformat.MaxPayload {
		return nil, fmt.Errorf("packet: payload length %d exceeds max %d", len(p.Payload), wireformat.MaxPayload)
	}
	total := p.Len()
	if total > 255 {
		return nil, fmt.Errorf("packet: total length %d exceeds wire limit 255", total)
	}
	buf := make([]byte, total)
	buf[wireformat.OffsetCmd] = uint8(p.Cmd)
	buf[wireformat.OffsetLen] = uint8(total)
	buf[wireformat.OffsetChan] = uint8(p.Channel)
	copy(buf[wireformat.OffsetData:], p.Payload)
	return buf, nil
}

// Unmarshal decodes a single complete frame (as produced by Marshal) back
// into a Packet. It does not resync; use Decoder for a live byte stream.
func Unmarshal(frame []byte) (Packet, error) {
	if len(frame) < MinLen {
		return Packet{}, fmt.Errorf("packet: frame too short (%d bytes)", len(frame))
	}
	length := int(frame[wireformat.OffsetLen])
	if length != len(frame) {
		return Packet{}, fmt.Errorf("packet: declared length %d does not match frame size %d", length, len(frame))
	}
	payload := make([]byte, length-wireformat.HeaderLen)
	copy(payload, frame[wireformat.OffsetData:])
	return Packet{
		Cmd:     wireformat.Command(frame[wireformat.OffsetCmd]),
		Channel: int8(frame[wireformat.OffsetChan]),
		Payload: payload,
	}, nil
}
