// Package channel implements the channel engine (C3): a numbered
// bidirectional byte pipe between the bus frontend and a provider, with
// the paired-buffer preload/refill pipeline of spec §4.3 so a consumer
// byte-stream never blocks while the next buffer can be prefetched.
//
// Grounded in the pipelining shape of the teacher's sdo_client.go state
// machine (an explicit State field, mutated by rx callbacks, driving a
// switch-based advance) and original_source/firmware/channel.c.
package channel

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

// ErrNotReady is returned by ReadByte when the next buffer has been
// requested from the provider but its reply has not arrived yet; the
// caller should Tick its transport and retry, not spin here.
var ErrNotReady = errors.New("channel: next buffer not ready yet")

// pipelineBuffer holds one pulled chunk of payload plus its read cursor.
type pipelineBuffer struct {
	data  []byte
	rp    int
	eof   bool
	ready bool
}

func (b *pipelineBuffer) remaining() int { return len(b.data) - b.rp }

// Channel is a single open file/directory/buffer handle, pipelining
// reads across two buffers per spec §4.3.
type Channel struct {
	ID        int8
	Access    wireformat.Access
	Provider  Provider
	State     State
	LastError wireformat.ErrorCode

	// CloseOnEOF marks channels whose bus convention auto-closes as soon
	// as the consumer reads the EOF byte (LOAD, the status channel).
	CloseOnEOF bool

	bufs   [2]pipelineBuffer
	active int // index (0 or 1) of the buffer currently being drained
}

// New creates a channel bound to provider, in StateClosed until Open is
// called.
func New(id int8, provider Provider, access wireformat.Access) *Channel {
	return &Channel{ID: id, Provider: provider, Access: access, State: StateClosed}
}

// Open transitions OPEN -> PRELOAD, issuing the first pull. For
// write-only channels there is nothing to preload; the channel goes
// straight to StateOneRead with both buffers empty, ready to accept
// WriteByte calls.
func (c *Channel) Open() error {
	c.State = StateOpen
	c.active = 0
	c.bufs = [2]pipelineBuffer{}

	if c.Access == wireformat.AccessWrite {
		c.State = StateOneRead
		return nil
	}
	return c.pull(0)
}

// pull issues a READ submit_call that will land in bufs[slot].
func (c *Channel) pull(slot int) error {
	req, err := packet.New(wireformat.Read, c.ID, nil)
	if err != nil {
		return err
	}
	if slot == 0 {
		c.State = StatePreload
	} else {
		c.State = StatePull2nd
	}
	return c.Provider.SubmitCall(c.ID, req, func(reply packet.Packet, err error) {
		c.onPulled(slot, reply, err)
	})
}

// onPulled is the rx callback for a pull into bufs[slot]; it applies the
// optional directory conversion (the *CONV states) before making the
// buffer readable.
func (c *Channel) onPulled(slot int, reply packet.Packet, err error) {
	if err != nil {
		log.WithField("component", "channel").Warnf("channel %d: pull into slot %d failed: %v", c.ID, slot, err)
		c.LastError = wireformat.ErrFault
		return
	}
	if reply.Cmd == wireformat.Reply {
		c.LastError = wireformat.ErrorCode(reply.Payload[0])
		return
	}

	if slot == 0 {
		c.State = StateOneConv
	} else {
		c.State = StateTwoConv
	}

	converted := reply
	if conv, ok := c.Provider.(DirectoryConverter); ok {
		converted, err = conv.ConvertDirectory(reply)
		if err != nil {
			log.WithField("component", "channel").Warnf("channel %d: directory conversion failed: %v", c.ID, err)
			c.LastError = wireformat.ErrFault
			return
		}
	}

	c.bufs[slot] = pipelineBuffer{data: converted.Payload, eof: converted.IsEOF(), ready: true}

	if slot == 0 {
		c.State = StateOneRead
	} else {
		c.State = StateTwoRead
	}
}

// ReadByte returns the next payload byte and whether it is the channel's
// final byte. As soon as the active buffer starts draining with a
// sibling not yet requested, ReadByte kicks off the second pull so the
// next buffer is ready by the time this one empties (spec §4.3's
// ONEREAD -> PULL2ND transition). It returns ErrNotReady rather than
// blocking when the next buffer has been requested but not yet filled;
// the caller ticks its transport and calls ReadByte again.
func (c *Channel) ReadByte() (b byte, eof bool, err error) {
	cur := &c.bufs[c.active]
	if !cur.ready {
		return 0, false, ErrNotReady
	}

	if c.State == StateOneRead {
		other := 1 - c.active
		if !c.bufs[other].ready && !cur.eof {
			if err := c.pull(other); err != nil {
				return 0, false, err
			}
		}
	}

	if cur.remaining() > 0 {
		b = cur.data[cur.rp]
		cur.rp++
		isLast := cur.remaining() == 0 && cur.eof
		return b, isLast, nil
	}

	if cur.eof {
		return 0, true, nil
	}

	// Current buffer drained but the stream continues: switch to the
	// sibling if it has already arrived (spec's TWOREAD -> ONEREAD
	// "switch + pull"), else tell the caller to wait.
	other := 1 - c.active
	if !c.bufs[other].ready {
		return 0, false, ErrNotReady
	}
	c.active = other
	c.bufs[1-c.active] = pipelineBuffer{}
	c.State = StateOneRead
	if !c.bufs[c.active].eof {
		if err := c.pull(1 - c.active); err != nil {
			return 0, false, err
		}
	}
	return c.ReadByte()
}

// WriteByte buffers one byte for the next flush. EOF is signalled by the
// caller via Flush(eof=true); there is no separate buffered-write
// pipeline for the write direction in this model, matching spec §4.3's
// note that WRITE_EOF marks the last byte rather than a flag.
func (c *Channel) WriteByte(b byte) error {
	cur := &c.bufs[c.active]
	cur.data = append(cur.data, b)
	if len(cur.data) >= wireformat.MaxPayload {
		return c.Flush(false)
	}
	return nil
}

// Flush sends the buffered write bytes as WRITE or WRITE_EOF.
func (c *Channel) Flush(eof bool) error {
	cur := &c.bufs[c.active]
	cmd := wireformat.Write
	if eof {
		cmd = wireformat.WriteEOF
	}
	req, err := packet.New(cmd, c.ID, cur.data)
	if err != nil {
		return err
	}
	cur.data = nil
	return c.Provider.Submit(c.ID, req)
}

// Close releases the channel's buffers. It does not notify the
// provider; callers issue an explicit CLOSE submit_call first when the
// bus convention requires it.
func (c *Channel) Close() {
	c.State = StateClosed
	c.bufs = [2]pipelineBuffer{}
}
