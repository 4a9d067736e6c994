package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

// loopbackBus is an in-memory Bus: Send records each frame in sent, and
// Poll hands the bytes queued with deliver to the listener.
type loopbackBus struct {
	listener ByteListener
	inbox    [][]byte
	sent     [][]byte
}

func (b *loopbackBus) Connect(...any) error { return nil }
func (b *loopbackBus) Disconnect() error    { return nil }

func (b *loopbackBus) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	b.sent = append(b.sent, cp)
	return nil
}

func (b *loopbackBus) Subscribe(listener ByteListener) error {
	b.listener = listener
	return nil
}

func (b *loopbackBus) Poll() error {
	for _, msg := range b.inbox {
		b.listener.Handle(msg)
	}
	b.inbox = nil
	return nil
}

func (b *loopbackBus) deliver(data []byte) {
	b.inbox = append(b.inbox, data)
}

func TestSubmitSendsImmediatelyWhenSlotFree(t *testing.T) {
	bus := &loopbackBus{}
	mux, err := NewMultiplexer(bus, "test")
	require.NoError(t, err)

	pkt, err := packet.New(wireformat.Read, 3, []byte{0x01})
	require.NoError(t, err)
	require.NoError(t, mux.Submit(pkt))

	mux.Tick()
	require.Len(t, bus.sent, 1)

	back, err := packet.Unmarshal(bus.sent[0])
	require.NoError(t, err)
	assert.Equal(t, pkt, back)
}

func TestDispatchMatchesChannelBinding(t *testing.T) {
	bus := &loopbackBus{}
	mux, err := NewMultiplexer(bus, "test")
	require.NoError(t, err)

	var got packet.Packet
	calls := 0
	mux.Bind(3, func(p packet.Packet) bool {
		got = p
		calls++
		return calls < 2 // stay registered for exactly 2 deliveries
	})

	pkt, err := packet.New(wireformat.Data, 3, []byte{0xAA})
	require.NoError(t, err)
	frame, err := pkt.Marshal()
	require.NoError(t, err)

	bus.deliver(frame)
	mux.Tick()
	assert.Equal(t, 1, calls)
	assert.Equal(t, pkt, got)

	bus.deliver(frame)
	mux.Tick()
	assert.Equal(t, 2, calls)

	// Binding unregistered itself after the second delivery.
	bus.deliver(frame)
	mux.Tick()
	assert.Equal(t, 2, calls)
}

func TestUnboundChannelIsDrainedSilently(t *testing.T) {
	bus := &loopbackBus{}
	mux, err := NewMultiplexer(bus, "test")
	require.NoError(t, err)

	pkt, err := packet.New(wireformat.Reply, 1, nil)
	require.NoError(t, err)
	frame, err := pkt.Marshal()
	require.NoError(t, err)

	bus.deliver(frame)
	assert.NotPanics(t, func() { mux.Tick() })
}

func TestSubmitBlocksUntilSlotFrees(t *testing.T) {
	bus := &loopbackBus{}
	mux, err := NewMultiplexer(bus, "test")
	require.NoError(t, err)

	for i := 0; i < MaxSendSlots; i++ {
		pkt, err := packet.New(wireformat.Data, int8(i), nil)
		require.NoError(t, err)
		require.NoError(t, mux.Submit(pkt))
	}
	assert.Len(t, mux.slots, MaxSendSlots)

	// Submit drains slot 0 itself via Tick before it can enqueue a 5th.
	pkt, err := packet.New(wireformat.DataEOF, 9, nil)
	require.NoError(t, err)
	require.NoError(t, mux.Submit(pkt))
	assert.LessOrEqual(t, len(mux.slots), MaxSendSlots)
}

func TestBootSyncWaitsForFirstNonSyncReply(t *testing.T) {
	bus := &loopbackBus{}
	mux, err := NewMultiplexer(bus, "test")
	require.NoError(t, err)

	reply, err := packet.New(wireformat.Reply, wireformat.ChanTerm, []byte{0x00})
	require.NoError(t, err)
	frame, err := reply.Marshal()
	require.NoError(t, err)
	bus.deliver(frame)

	got, err := mux.BootSync()
	require.NoError(t, err)
	assert.Equal(t, reply, got)
	assert.Equal(t, packet.SyncFlood(), bus.sent[0])
}
