// Package buffer implements the direct-buffer and REL-file proxy engines
// (C4): CBM `#`/U1/U2/B-R/B-W/B-P/B-A/B-F direct buffer semantics, and a
// record-level proxy that wraps another channel.Provider for REL files.
//
// Grounded in original_source/firmware/direct.c (cmd_user_u12,
// direct_set_ptr, block_submit_call) and relfile.c.
package buffer

import (
	"fmt"

	"github.com/xd2031/core/channel"
	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

// Size is the fixed direct-buffer length (one CBM disk sector).
const Size = 256

// NDirectBuffers is the size of the direct-buffer pool. The original
// firmware makes this a build-time constant (CONFIG_NUM_DIRECT_BUFFERS);
// 4 matches its shipped default.
const NDirectBuffers = 4

// DirectBuffer is one allocated 256-byte buffer slot, addressed by the
// channel id it was opened on.
type DirectBuffer struct {
	ID int8

	data      [Size]byte
	rp, wp    int
	lastValid int
	preload   bool
}

func newDirectBuffer(id int8) *DirectBuffer {
	return &DirectBuffer{ID: id, rp: 1, wp: 1}
}

// readByte implements the READ contract: the first read after OPEN
// returns the slot number (for IEEE confirmation) rather than data;
// thereafter it returns buffer[rp] and advances, wrapping rp to 0 and
// signalling DATA_EOF once rp reaches lastValid.
func (b *DirectBuffer) readByte(slot int) (byte, wireformat.Command) {
	if !b.preload {
		b.preload = true
		return byte(slot), wireformat.Data
	}

	v := b.data[b.rp]
	b.wp = b.rp // wp trails rp by one to model the preload byte
	if b.lastValid == 0 || b.rp != b.lastValid {
		b.rp++
		return v, wireformat.Data
	}
	b.rp = 0
	b.wp = 1
	return v, wireformat.DataEOF
}

// writeBytes appends data at wp, wrapping on overflow, and marks the
// buffer preloaded with lastValid trailing one behind wp.
func (b *DirectBuffer) writeBytes(data []byte) {
	for _, by := range data {
		b.data[b.wp&0xFF] = by
		b.wp = (b.wp + 1) & 0xFF
	}
	b.preload = true
	b.rp = b.wp
	if b.wp == 0 {
		b.lastValid = 0
	} else {
		b.lastValid = b.wp - 1
	}
}

// setPointer implements B-P: rp = wp = given, guarded to 0..255.
func (b *DirectBuffer) setPointer(pos int) error {
	if pos < 0 || pos > 255 {
		return wireformat.ErrOverflowInRecord
	}
	b.rp, b.wp = pos, pos
	return nil
}

// Pool is the bounded, statically allocated set of direct buffers (spec
// §5: "Direct buffers are a bounded, statically allocated pool
// (N_DIRECT_BUFFERS)"). It implements channel.Provider so the channel
// engine treats `#`-opened channels like any other provider.
type Pool struct {
	slots  [NDirectBuffers]*DirectBuffer
	server channel.Provider // forwards B-R/B-W/U1/U2/B-A/B-F as FS_BLOCK
}

// NewPool creates an empty direct-buffer pool forwarding block commands
// to server.
func NewPool(server channel.Provider) *Pool {
	return &Pool{server: server}
}

func (p *Pool) reserve(channelID int8, bufno int) (*DirectBuffer, error) {
	if bufno >= 0 {
		if bufno >= NDirectBuffers || p.slots[bufno] != nil {
			return nil, wireformat.ErrNoChannel
		}
		b := newDirectBuffer(channelID)
		p.slots[bufno] = b
		return b, nil
	}
	for i, b := range p.slots {
		if b == nil {
			nb := newDirectBuffer(channelID)
			p.slots[i] = nb
			return nb, nil
		}
	}
	return nil, wireformat.ErrNoChannel
}

func (p *Pool) find(channelID int8) (*DirectBuffer, bool) {
	for _, b := range p.slots {
		if b != nil && b.ID == channelID {
			return b, true
		}
	}
	return nil, false
}

func (p *Pool) release(channelID int8) bool {
	for i, b := range p.slots {
		if b != nil && b.ID == channelID {
			p.slots[i] = nil
			return true
		}
	}
	return false
}

func errorReply(channelID int8, code wireformat.ErrorCode) packet.Packet {
	p, _ := packet.New(wireformat.Reply, channelID, []byte{byte(code)})
	return p
}

// SubmitCall implements channel.Provider for OPEN_DIRECT and READ.
func (p *Pool) SubmitCall(channelID int8, tx packet.Packet, cb channel.SubmitCallback) error {
	switch tx.Cmd {
	case wireformat.OpenDirect:
		name := wireformat.ParseName(tx.Payload)
		bufno := -1
		if len(name.Primary) > 0 {
			fmt.Sscanf(string(name.Primary), "%d", &bufno)
		}
		if _, err := p.reserve(channelID, bufno); err != nil {
			cb(errorReply(channelID, wireformat.ErrNoChannel), nil)
			return nil
		}
		cb(errorReply(channelID, wireformat.ErrOK), nil)
		return nil

	case wireformat.Read:
		for slot, buf := range p.slots {
			if buf == nil || buf.ID != channelID {
				continue
			}
			v, cmd := buf.readByte(slot)
			reply, err := packet.New(cmd, channelID, []byte{v})
			if err != nil {
				return err
			}
			cb(reply, nil)
			return nil
		}
		cb(errorReply(channelID, wireformat.ErrNoChannel), nil)
		return nil
	}
	return fmt.Errorf("buffer: unsupported submit_call command %s", tx.Cmd)
}

// Submit implements channel.Provider for WRITE/WRITE_EOF and CLOSE.
func (p *Pool) Submit(channelID int8, tx packet.Packet) error {
	switch tx.Cmd {
	case wireformat.Write, wireformat.WriteEOF:
		buf, ok := p.find(channelID)
		if !ok {
			return wireformat.ErrNoChannel
		}
		buf.writeBytes(tx.Payload)
		return nil

	case wireformat.Close:
		if !p.release(channelID) {
			return wireformat.ErrNoChannel
		}
		return nil
	}
	return fmt.Errorf("buffer: unsupported submit command %s", tx.Cmd)
}

// SetPointer implements B-P for the buffer open on channelID.
func (p *Pool) SetPointer(channelID int8, pos int) error {
	buf, ok := p.find(channelID)
	if !ok {
		return wireformat.ErrNoChannel
	}
	return buf.setPointer(pos)
}

// BlockReadWrite implements U1/U2 (blockFlag=false) and B-R/B-W
// (blockFlag=true): both forward params as FS_BLOCK to the server. A
// read additionally uses buffer[0] as the effective lastValid on
// readback for B-R (U1 uses 255); a write prefixes buffer[0] with
// max(1, wp-1) for B-W (U2 sends the buffer raw).
func (p *Pool) BlockReadWrite(channelID int8, params wireformat.BlockParams, write, blockFlag bool) error {
	buf, ok := p.find(channelID)
	if !ok {
		return wireformat.ErrNoChannel
	}

	if write {
		if blockFlag {
			n := buf.wp - 1
			if n < 1 {
				n = 1
			}
			buf.data[0] = byte(n)
		}
		payload := append(append([]byte{}, params.Bytes()...), buf.data[:]...)
		req, err := packet.New(wireformat.Block, channelID, payload)
		if err != nil {
			return err
		}
		if err := p.server.Submit(channelID, req); err != nil {
			return err
		}
		buf.rp, buf.wp = 0, 0
		return nil
	}

	tx, err := packet.New(wireformat.Block, channelID, params.Bytes())
	if err != nil {
		return err
	}

	var callErr error
	err = p.server.SubmitCall(channelID, tx, func(reply packet.Packet, cerr error) {
		if cerr != nil {
			callErr = cerr
			return
		}
		if reply.Cmd == wireformat.Reply {
			callErr = wireformat.ErrorCode(reply.Payload[0])
			return
		}
		copy(buf.data[:], reply.Payload)
		if blockFlag {
			buf.lastValid = int(buf.data[0])
			buf.rp, buf.wp = 1, 1
		} else {
			buf.lastValid = 255
			buf.rp, buf.wp = 0, 0
		}
		buf.preload = true
	})
	if err != nil {
		return err
	}
	return callErr
}

// BlockAllocFree forwards B-A/B-F to the server and surfaces its error.
func (p *Pool) BlockAllocFree(params wireformat.BlockParams) error {
	tx, err := packet.New(wireformat.Block, wireformat.ChanNone, params.Bytes())
	if err != nil {
		return err
	}
	var callErr error
	err = p.server.SubmitCall(wireformat.ChanNone, tx, func(reply packet.Packet, cerr error) {
		if cerr != nil {
			callErr = cerr
			return
		}
		if reply.Cmd == wireformat.Reply && len(reply.Payload) > 0 {
			if code := wireformat.ErrorCode(reply.Payload[0]); code != wireformat.ErrOK {
				callErr = code
			}
		}
	})
	if err != nil {
		return err
	}
	return callErr
}
