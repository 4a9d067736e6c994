package packet

import (
	log "github.com/sirupsen/logrus"

	"github.com/xd2031/core/internal/ringbuffer"
	"github.com/xd2031/core/wireformat"
)

// SyncHandler is invoked once per SYNC byte the decoder consumes. The
// decoder itself sends nothing back, and transport.Multiplexer does not
// set a handler, so SYNC bytes it receives are consumed without an echo.
type SyncHandler func()

// Decoder reframes a byte stream that may lose synchronization into a
// sequence of packets (spec §4.1). It holds no package-level state — each
// connection owns its own Decoder — resolving the open question in
// spec §9 about the original's shared-state recv_packet.
type Decoder struct {
	buf     *ringbuffer.RingBuffer
	OnSync  SyncHandler
	Label   string // for log messages, e.g. "device" or "server"
}

// NewDecoder allocates a decoder with the given byte-stream capacity. The
// ring buffer holds capacity-1 bytes, so capacity must be at least
// HeaderLen+MaxPayload+1 to hold one full packet.
func NewDecoder(capacity int, label string) *Decoder {
	return &Decoder{buf: ringbuffer.New(capacity), Label: label}
}

// Feed appends freshly-received bytes to the decoder's internal buffer.
// It returns the number of bytes actually buffered (less than len(data)
// if the buffer is full; the caller should retry with the remainder after
// draining packets via Next).
func (d *Decoder) Feed(data []byte) int {
	return d.buf.Write(data)
}

// Next attempts to decode one packet from the buffered bytes, applying the
// resync algorithm of spec §4.1. It returns ok=false when no complete
// packet is currently available (the caller should Feed more bytes).
func (d *Decoder) Next() (pkt Packet, ok bool) {
	for {
		cmdByte, have := d.buf.Peek(0)
		if !have {
			return Packet{}, false
		}

		if wireformat.Command(cmdByte) == wireformat.Sync {
			d.buf.Advance(1, nil)
			if d.OnSync != nil {
				d.OnSync()
			}
			continue
		}

		lenByte, have := d.buf.Peek(1)
		if !have {
			return Packet{}, false
		}
		length := int(lenByte)

		if length < MinLen {
			log.WithField("component", d.Label).Warnf("packet: resync, bad length %d at cmd 0x%02x", length, cmdByte)
			d.buf.Advance(1, nil)
			continue
		}

		if d.buf.Len() < length {
			return Packet{}, false
		}

		frame := make([]byte, length)
		d.buf.Advance(length, frame)

		p, err := Unmarshal(frame)
		if err != nil {
			log.WithField("component", d.Label).Warnf("packet: dropping malformed frame: %v", err)
			continue
		}
		return p, true
	}
}

// SyncFloodBytes is how many SYNC bytes the device floods at boot to let
// the server re-anchor its decoder (spec §4.1/§4.2).
const SyncFloodBytes = 128

// SyncFlood returns SyncFloodBytes worth of SYNC bytes for the boot
// handshake.
func SyncFlood() []byte {
	buf := make([]byte, SyncFloodBytes)
	for i := range buf {
		buf[i] = byte(wireformat.Sync)
	}
	return buf
}
