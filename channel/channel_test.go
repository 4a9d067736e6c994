package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

// fakeProvider answers every SubmitCall synchronously from a queue of
// canned chunks, simulating the pull pipeline without a real transport.
type fakeProvider struct {
	chunks [][]byte // each entry becomes one DATA or DATA_EOF reply
	calls  int
}

func (p *fakeProvider) SubmitCall(channelID int8, tx packet.Packet, cb SubmitCallback) error {
	idx := p.calls
	p.calls++
	if idx >= len(p.chunks) {
		cb(packet.Packet{}, nil)
		return nil
	}
	chunk := p.chunks[idx]
	cmd := wireformat.Data
	if idx == len(p.chunks)-1 {
		cmd = wireformat.DataEOF
	}
	reply, err := packet.New(cmd, channelID, chunk)
	if err != nil {
		return err
	}
	cb(reply, nil)
	return nil
}

func (p *fakeProvider) Submit(channelID int8, tx packet.Packet) error {
	return nil
}

// P7: while draining buffer A, buffer B is filled exactly once; the
// concatenation of delivered bytes equals the concatenation of pulled
// bytes, with EOF carried on the last byte only.
func TestChannelPipelinesReadsAcrossBuffers(t *testing.T) {
	prov := &fakeProvider{chunks: [][]byte{
		{1, 2, 3},
		{4, 5},
		{6},
	}}
	ch := New(5, prov, wireformat.AccessRead)
	require.NoError(t, ch.Open())
	assert.Equal(t, StateOneRead, ch.State)

	var got []byte
	for {
		b, eof, err := ch.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
		if eof {
			break
		}
	}

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)
	assert.Equal(t, 3, prov.calls, "preload + second pull + third pull")
}

func TestOpenFailsWhenPoolExhausted(t *testing.T) {
	pool := NewPool()
	prov := &fakeProvider{}
	for i := 0; i < MaxChannels; i++ {
		_, err := pool.Reserve(-1, prov, wireformat.AccessRead)
		require.NoError(t, err)
	}
	_, err := pool.Reserve(-1, prov, wireformat.AccessRead)
	assert.Equal(t, wireformat.ErrNoChannel, err)
}

func TestReserveSpecificSlotFailsIfTaken(t *testing.T) {
	pool := NewPool()
	prov := &fakeProvider{}
	_, err := pool.Reserve(3, prov, wireformat.AccessRead)
	require.NoError(t, err)
	_, err = pool.Reserve(3, prov, wireformat.AccessRead)
	assert.Equal(t, wireformat.ErrNoChannel, err)
}

func TestWriteOnlyChannelSkipsPreload(t *testing.T) {
	prov := &fakeProvider{}
	ch := New(2, prov, wireformat.AccessWrite)
	require.NoError(t, ch.Open())
	assert.Equal(t, StateOneRead, ch.State)
	assert.Equal(t, 0, prov.calls)
}
