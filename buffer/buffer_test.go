package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xd2031/core/channel"
	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

// fakeServer is a minimal channel.Provider standing in for the disk-image
// server side of direct buffers and REL files.
type fakeServer struct {
	blockReply   []byte
	readReplies  [][]byte
	readCalls    int
	writes       []packet.Packet
	positions    []packet.Packet
	closed       bool
}

func (s *fakeServer) SubmitCall(channelID int8, tx packet.Packet, cb channel.SubmitCallback) error {
	switch tx.Cmd {
	case wireformat.Block:
		reply, err := packet.New(wireformat.Data, channelID, s.blockReply)
		if err != nil {
			return err
		}
		cb(reply, nil)
		return nil
	case wireformat.Read:
		idx := s.readCalls
		s.readCalls++
		if idx >= len(s.readReplies) {
			reply, _ := packet.New(wireformat.Reply, channelID, []byte{byte(wireformat.ErrRecordNotPresent)})
			cb(reply, nil)
			return nil
		}
		reply, err := packet.New(wireformat.Data, channelID, s.readReplies[idx])
		if err != nil {
			return err
		}
		cb(reply, nil)
		return nil
	}
	return nil
}

func (s *fakeServer) Submit(channelID int8, tx packet.Packet) error {
	switch tx.Cmd {
	case wireformat.Position:
		s.positions = append(s.positions, tx)
	case wireformat.Write:
		s.writes = append(s.writes, tx)
	case wireformat.Close:
		s.closed = true
	}
	return nil
}

// B-P positions the pointer, then B-R reads the block back: the readback
// takes lastValid from byte 0 and resets the pointer to 1, discarding the
// position B-P set.
func TestDirectBufferSetPointerThenBlockRead(t *testing.T) {
	srv := &fakeServer{blockReply: append([]byte{10}, make([]byte, 255)...)}
	pool := NewPool(srv)

	var openReply packet.Packet
	req, err := packet.New(wireformat.OpenDirect, 4, nil)
	require.NoError(t, err)
	err = pool.SubmitCall(4, req, func(reply packet.Packet, cerr error) {
		require.NoError(t, cerr)
		openReply = reply
	})
	require.NoError(t, err)
	assert.Equal(t, wireformat.ErrOK, wireformat.ErrorCode(openReply.Payload[0]))

	require.NoError(t, pool.SetPointer(4, 5))

	params := wireformat.BlockParams{}
	require.NoError(t, pool.BlockReadWrite(4, params, false, true))

	buf, ok := pool.find(4)
	require.True(t, ok)
	assert.Equal(t, 10, buf.lastValid)
	assert.Equal(t, 1, buf.rp)
}

// P: the first READ after OPEN_DIRECT returns the slot number, not data.
func TestDirectBufferFirstReadReturnsSlotNumber(t *testing.T) {
	srv := &fakeServer{}
	pool := NewPool(srv)
	_, err := pool.reserve(6, 2)
	require.NoError(t, err)

	req, err := packet.New(wireformat.Read, 6, nil)
	require.NoError(t, err)
	var got packet.Packet
	require.NoError(t, pool.SubmitCall(6, req, func(reply packet.Packet, cerr error) {
		got = reply
	}))
	assert.Equal(t, wireformat.Data, got.Cmd)
	assert.Equal(t, byte(2), got.Payload[0])
}

func TestDirectBufferWriteAdvancesWriteCursor(t *testing.T) {
	srv := &fakeServer{}
	pool := NewPool(srv)
	_, err := pool.reserve(1, -1)
	require.NoError(t, err)

	writeReq, err := packet.New(wireformat.Write, 1, []byte{0xAA, 0xBB, 0xCC})
	require.NoError(t, err)
	require.NoError(t, pool.Submit(1, writeReq))

	buf, ok := pool.find(1)
	require.True(t, ok)
	assert.True(t, buf.preload)
	assert.Equal(t, byte(0xAA), buf.data[1])
	assert.Equal(t, byte(0xCC), buf.data[3])
	assert.Equal(t, 3, buf.lastValid)
	assert.Equal(t, 4, buf.rp)
}

func TestDirectBufferReadBeforeWriteReturnsSlotThenData(t *testing.T) {
	srv := &fakeServer{}
	pool := NewPool(srv)
	_, err := pool.reserve(3, -1)
	require.NoError(t, err)

	readReq, err := packet.New(wireformat.Read, 3, nil)
	require.NoError(t, err)

	var values []byte
	var cmds []wireformat.Command
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.SubmitCall(3, readReq, func(reply packet.Packet, cerr error) {
			values = append(values, reply.Payload[0])
			cmds = append(cmds, reply.Cmd)
		}))
	}
	assert.Equal(t, byte(0), values[0])
	assert.Equal(t, wireformat.Data, cmds[0])
	assert.Equal(t, wireformat.Data, cmds[1], "lastValid unset (0) means no EOF has been armed yet")
}

// S5: opening a REL file with a record length over 254 is rejected.
func TestNewRelProxyRejectsOversizeRecord(t *testing.T) {
	srv := &fakeServer{}
	_, err := NewRelProxy(7, srv, 255)
	assert.Equal(t, wireformat.ErrOverflowInRecord, err)
}

// Reading a fresh record triggers a position+read round trip, then yields
// bytes until the remainder of the record reads all zero.
func TestRelProxyGetPullsRecordThenStopsAtZeroFill(t *testing.T) {
	srv := &fakeServer{readReplies: [][]byte{
		append([]byte{'h', 'i'}, make([]byte, 8)...),
	}}
	rp, err := NewRelProxy(9, srv, 10)
	require.NoError(t, err)

	b, eof, err := rp.Get(9, false)
	require.NoError(t, err)
	assert.Equal(t, byte('h'), b)
	assert.False(t, eof)

	b, eof, err = rp.Get(9, false)
	require.NoError(t, err)
	assert.Equal(t, byte('i'), b)
	assert.True(t, eof, "remainder of record is zero-filled")

	require.Len(t, srv.positions, 1)
}

// Filling a record does not send it yet; the next byte is rejected with
// OVERFLOW_IN_RECORD and triggers the write-back via POSITION+WRITE.
func TestRelProxyPutFlushesFullRecord(t *testing.T) {
	srv := &fakeServer{}
	rp, err := NewRelProxy(9, srv, 4)
	require.NoError(t, err)

	require.NoError(t, rp.Put(9, 'a', false))
	require.NoError(t, rp.Put(9, 'b', false))
	require.NoError(t, rp.Put(9, 'c', false))
	require.NoError(t, rp.Put(9, 'd', false))
	err = rp.Put(9, 'e', false)
	assert.Equal(t, wireformat.ErrOverflowInRecord, err)

	require.Len(t, srv.writes, 1)
	assert.Equal(t, []byte{'a', 'b', 'c', 'd'}, srv.writes[0].Payload)
	require.Len(t, srv.positions, 1)
}

// Bare POSITION (pos-in-record 0) only surfaces whether the record exists,
// without reading it into the buffer.
func TestRelProxyPositionZeroJustProbes(t *testing.T) {
	srv := &fakeServer{}
	rp, err := NewRelProxy(9, srv, 4)
	require.NoError(t, err)

	require.NoError(t, rp.Position(3, 0))
	require.Len(t, srv.positions, 1)
	assert.False(t, rp.preload)
}

func TestMaskChannelStripsRecordOffset(t *testing.T) {
	assert.Equal(t, uint8(5), MaskChannel(0x65))
}
