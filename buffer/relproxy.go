package buffer

import (
	"fmt"

	"github.com/xd2031/core/channel"
	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

// RelProxy is a record-level proxy for a REL file. It wraps the original
// server endpoint and implements channel.ByteProvider for byte-at-a-time
// get/put (spec §4.4). It is created with NewRelProxy; no code in this
// module reacts to an OPEN_REL reply by creating one, and channel.Channel
// does not call Get or Put.
//
// Grounded in original_source/firmware/relfile.c (relfile_get,
// relfile_put, relfile_position, relfile_rw_record).
type RelProxy struct {
	channelID int8
	real      channel.Provider
	recordLen int

	buf         [Size]byte
	rp, wp      int
	recordNo    int
	posInRecord int
	lastValid   int
	preload     bool
	isRead      bool
}

// NewRelProxy wraps real for channelID. recordLen over 254 is rejected
// (spec §4.4: "Record-length ceiling 254").
func NewRelProxy(channelID int8, real channel.Provider, recordLen int) (*RelProxy, error) {
	if recordLen > 254 {
		return nil, wireformat.ErrOverflowInRecord
	}
	return &RelProxy{channelID: channelID, real: real, recordLen: recordLen}, nil
}

// positionPayload encodes the current record number for FS_POSITION:
// the wire protocol is zero-based, CBM DOS is one-based.
func (r *RelProxy) positionPayload() []byte {
	rec := r.recordNo
	if rec != 0 {
		rec--
	}
	return []byte{byte(rec), byte(rec >> 8)}
}

// rwRecord sends FS_POSITION on the file's channel, then reads or writes
// the current record (spec: "Record addressing: FS_POSITION carries a
// zero-based record number and is sent on the file's channel before any
// record-level read or write").
func (r *RelProxy) rwRecord(write bool) error {
	posPkt, err := packet.New(wireformat.Position, r.channelID, r.positionPayload())
	if err != nil {
		return err
	}
	if err := r.real.Submit(r.channelID, posPkt); err != nil {
		return err
	}

	if write {
		req, err := packet.New(wireformat.Write, r.channelID, append([]byte{}, r.buf[:r.recordLen]...))
		if err != nil {
			return err
		}
		if err := r.real.Submit(r.channelID, req); err != nil {
			return err
		}
	} else {
		req, err := packet.New(wireformat.Read, r.channelID, nil)
		if err != nil {
			return err
		}
		var callErr error
		err = r.real.SubmitCall(r.channelID, req, func(reply packet.Packet, cerr error) {
			if cerr != nil {
				callErr = cerr
				return
			}
			if reply.Cmd == wireformat.Reply {
				callErr = wireformat.ErrorCode(reply.Payload[0])
				return
			}
			copy(r.buf[:], reply.Payload)
			r.lastValid = len(reply.Payload)
		})
		if err != nil {
			return err
		}
		if callErr == wireformat.ErrRecordNotPresent {
			for i := 0; i < r.recordLen; i++ {
				r.buf[i] = 0
			}
			r.lastValid = 0
			callErr = nil
		}
		if callErr != nil {
			return callErr
		}
	}

	r.posInRecord = 0
	r.rp, r.wp = 0, 0
	r.preload = true
	r.isRead = false
	return nil
}

// Get implements channel.ByteProvider. If the buffer is not preloaded it
// positions-then-reads the current record first. On each byte it checks
// whether the rest of the record is all zero, signalling record EOF; on
// a non-preload EOF it advances the record number, reusing the buffer
// if the next record is already resident.
func (r *RelProxy) Get(channelID int8, preload bool) (byte, bool, error) {
	if !r.preload {
		if err := r.rwRecord(false); err != nil {
			return 0, true, err
		}
	}

	data := r.buf[r.rp]
	r.wp = r.rp
	if !preload {
		r.isRead = true
	}

	eof := true
	if r.posInRecord < r.recordLen {
		for i := r.rp + 1; i < r.recordLen; i++ {
			if r.buf[i] != 0 {
				eof = false
				break
			}
		}
		if !preload {
			r.rp++
			r.posInRecord++
		}
	}

	if eof && !preload {
		r.recordNo++
		r.isRead = false
		if r.lastValid-r.rp > r.recordLen {
			r.posInRecord = 0
		} else {
			r.preload = false
		}
	}
	return data, eof, nil
}

// Put implements channel.ByteProvider. When the last op was a read
// (ISREAD), it skips straight to the next record without reading it
// first, since the byte about to be written will overwrite it anyway.
// Filling the record does not send it: the next Put is rejected with
// ErrOverflowInRecord and writes the record back, and flush zero-pads
// the remainder and writes the record back.
func (r *RelProxy) Put(channelID int8, b byte, flush bool) error {
	if r.isRead {
		r.recordNo++
		r.posInRecord = 0
		r.rp, r.wp = 0, 0
		r.isRead = false
	}

	var putErr error
	if r.posInRecord < r.recordLen {
		r.buf[r.wp] = b
		r.wp++
		r.posInRecord++
	} else {
		putErr = wireformat.ErrOverflowInRecord
	}

	r.preload = true
	r.rp = r.wp
	if r.wp == 0 {
		r.lastValid = 0
	} else {
		r.lastValid = r.wp - 1
	}

	if putErr == wireformat.ErrOverflowInRecord || flush {
		for r.posInRecord < r.recordLen {
			r.buf[r.wp] = 0
			r.wp++
			r.posInRecord++
		}
		if err := r.rwRecord(true); err != nil {
			return err
		}
		r.recordNo++
		r.preload = false
	}
	return putErr
}

// MaskChannel strips the 0x60 RECORD# offset CBM DOS adds to the
// secondary address in a P command (spec §4.4).
func MaskChannel(raw uint8) uint8 {
	return raw & 0x1F
}

// Position implements the POSITION(channel, record, pos-in-record)
// command: record is the CBM 1-based record number (0 is treated as 1),
// converted to the zero-based wire number by positionPayload; pos is the
// CBM 1-based in-record offset, 0 meaning "just surface whether the
// record exists."
func (r *RelProxy) Position(record uint16, pos uint8) error {
	r.recordNo = int(record)
	if pos > 0 {
		pos--
	}
	if pos == 0 {
		r.isRead = false
		r.preload = false
		posPkt, err := packet.New(wireformat.Position, r.channelID, r.positionPayload())
		if err != nil {
			return err
		}
		return r.real.Submit(r.channelID, posPkt)
	}

	if err := r.rwRecord(false); err != nil {
		return err
	}
	r.rp += int(pos)
	r.wp += int(pos)
	r.posInRecord = int(pos)
	return nil
}

// SubmitCall is unsupported: REL proxy traffic goes through
// ByteProvider's Get, not buffered submit_call.
func (r *RelProxy) SubmitCall(channelID int8, tx packet.Packet, cb channel.SubmitCallback) error {
	return fmt.Errorf("buffer: relproxy does not support submit_call for %s", tx.Cmd)
}

// Submit forwards CLOSE to the wrapped provider; every other command is
// rejected.
func (r *RelProxy) Submit(channelID int8, tx packet.Packet) error {
	if tx.Cmd == wireformat.Close {
		return r.real.Submit(channelID, tx)
	}
	return fmt.Errorf("buffer: relproxy does not support submit for %s", tx.Cmd)
}
