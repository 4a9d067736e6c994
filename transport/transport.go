// Package transport implements the packet multiplexer (C2): a bounded
// number of outbound send slots, inbound dispatch to per-channel rx
// bindings, and the boot-time SYNC flood handshake.
//
// Grounded in the teacher's BusManager (bus_manager.go): the
// subscriber-list-keyed-by-id shape becomes rx bindings keyed by channel,
// and BusManager.Process's cyclic-call idiom becomes Multiplexer.Tick.
package transport

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xd2031/core/packet"
)

// MaxSendSlots is the recommended number of outbound packets the
// multiplexer will hold in flight at once.
const MaxSendSlots = 4

type sendSlot struct {
	pkt   packet.Packet
	frame []byte
}

// RxCallback receives a dispatched packet and reports whether the
// binding should stay registered for further packets on the same
// channel (true keeps it, e.g. for a multi-packet READ stream).
type RxCallback func(pkt packet.Packet) (stayRegistered bool)

type rxBinding struct {
	channel  int8
	callback RxCallback
}

// Multiplexer is the single point of contact between the framed packet
// protocol and a Bus. It never blocks the caller: Submit and BootSync
// busy-wait, calling Tick, until they can make progress.
type Multiplexer struct {
	bus     Bus
	decoder *packet.Decoder
	label   string

	slots    []sendSlot
	bindings []rxBinding

	bootWaiting bool
	bootResult  *packet.Packet
}

// NewMultiplexer wires a Multiplexer on top of bus, subscribing itself as
// the bus's byte listener. label tags log lines (e.g. "device", "server").
func NewMultiplexer(bus Bus, label string) (*Multiplexer, error) {
	m := &Multiplexer{
		bus:     bus,
		decoder: packet.NewDecoder(packet.MinLen+256, label),
		label:   label,
	}
	if err := bus.Subscribe(m); err != nil {
		return nil, fmt.Errorf("transport: subscribe failed: %w", err)
	}
	return m, nil
}

// Handle implements ByteListener: it feeds raw bytes through the packet
// decoder and dispatches every fully decoded packet.
func (m *Multiplexer) Handle(data []byte) {
	m.decoder.Feed(data)
	for {
		pkt, ok := m.decoder.Next()
		if !ok {
			return
		}
		if m.bootWaiting {
			p := pkt
			m.bootResult = &p
			m.bootWaiting = false
			continue
		}
		m.dispatch(pkt)
	}
}

// dispatch matches pkt's channel against registered rx bindings. A
// binding whose callback returns false is dropped; a packet matching no
// binding is drained silently (spec §4.2: "on miss the body is
// drained").
func (m *Multiplexer) dispatch(pkt packet.Packet) {
	matched := false
	kept := m.bindings[:0]
	for _, b := range m.bindings {
		if b.channel != pkt.Channel {
			kept = append(kept, b)
			continue
		}
		matched = true
		if b.callback(pkt) {
			kept = append(kept, b)
		}
	}
	m.bindings = kept

	if !matched {
		log.WithField("component", m.label).Debugf("transport: dropped packet %s for unbound channel %d", pkt.Cmd, pkt.Channel)
	}
}

// Bind registers callback to receive packets addressed to channel.
// Packets on a single channel are delivered to its binding in the order
// they were decoded; there is no ordering guarantee across channels.
func (m *Multiplexer) Bind(channel int8, callback RxCallback) {
	m.bindings = append(m.bindings, rxBinding{channel: channel, callback: callback})
}

// Unbind removes every binding registered for channel.
func (m *Multiplexer) Unbind(channel int8) {
	kept := m.bindings[:0]
	for _, b := range m.bindings {
		if b.channel != channel {
			kept = append(kept, b)
		}
	}
	m.bindings = kept
}

// Submit enqueues pkt for transmission, busy-waiting on Tick until a
// send slot is free. Slot 0 is the one actively being serialized; on
// completion the remaining slots shift down.
func (m *Multiplexer) Submit(pkt packet.Packet) error {
	frame, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("transport: marshal failed: %w", err)
	}
	for len(m.slots) >= MaxSendSlots {
		m.Tick()
	}
	m.slots = append(m.slots, sendSlot{pkt: pkt, frame: frame})
	return nil
}

// Tick is the cooperative yield point (spec §5): it attempts to
// serialize the head send slot and polls the bus for inbound bytes.
// Callers loop `for !ready { mux.Tick() }` instead of blocking.
func (m *Multiplexer) Tick() {
	if len(m.slots) > 0 {
		head := m.slots[0]
		err := m.bus.Send(head.frame)
		switch {
		case err == nil:
			m.slots = m.slots[1:]
		case errors.Is(err, ErrBusy):
			// stay on slot 0, retry next tick
		default:
			log.WithField("component", m.label).Warnf("transport: dropping packet %s after send error: %v", head.pkt.Cmd, err)
			m.slots = m.slots[1:]
		}
	}

	if err := m.bus.Poll(); err != nil {
		log.WithField("component", m.label).Warnf("transport: poll error: %v", err)
	}
}

// BootSync sends the 128-byte SYNC flood and busy-waits for the first
// non-SYNC reply, per spec §4.2: "the exchange doubles as a flow-control
// reset."
func (m *Multiplexer) BootSync() (packet.Packet, error) {
	if err := m.bus.Send(packet.SyncFlood()); err != nil {
		return packet.Packet{}, fmt.Errorf("transport: boot sync flood failed: %w", err)
	}
	m.bootWaiting = true
	m.bootResult = nil
	for m.bootWaiting {
		m.Tick()
	}
	return *m.bootResult, nil
}
