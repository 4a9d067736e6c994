// Package socket488 implements a transport.Bus over a net.Conn using the
// single-byte command protocol of the original host-side test harness:
// ATN/SEND/REQ from the requester (ACK flagged on REQ, EOF on SEND), and
// OFFER from the responder (TIMEOUT or EOF flagged on it).
//
// Grounded in original_source/firmware/sockserv/sock488.c/.h.
package socket488

import (
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xd2031/core/transport"
)

// Command and flag bytes, named after S488_* in sock488.h.
const (
	Atn   byte = 0x01 // requester -> responder: send a byte with ATN
	Send  byte = 0x02 // requester -> responder: send a byte
	Req   byte = 0x03 // requester -> responder: request a byte

	Offer   byte = 0x04 // responder -> requester: offering a byte
	Timeout byte = 0x20 // set on Offer: no byte available
	Ack     byte = 0x40 // set on Req: acknowledge the previously offered byte
	Eof     byte = 0x80 // set on Send or Offer: last byte of a transfer
)

// pollTimeout bounds how long a single Poll waits for a REQ round-trip
// before giving up for this Tick.
const pollTimeout = 5 * time.Millisecond

// Conn is a transport.Bus backed by a net.Conn speaking the sock488
// sub-protocol. It is the counterpart the original firmware's
// sock488_mainloop_iteration talks to.
type Conn struct {
	conn     net.Conn
	listener transport.ByteListener
}

// New wraps an already-established connection.
func New(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Dial connects to addr over network (e.g. "unix", "tcp") and wraps it.
func Dial(network, addr string) (*Conn, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("socket488: dial %s %s: %w", network, addr, err)
	}
	return New(conn), nil
}

func (c *Conn) Connect(...any) error { return nil }

func (c *Conn) Disconnect() error {
	return c.conn.Close()
}

func (c *Conn) Subscribe(listener transport.ByteListener) error {
	c.listener = listener
	return nil
}

// Send transmits frame one byte at a time as SEND commands, flagging the
// final byte EOF.
func (c *Conn) Send(frame []byte) error {
	for i, b := range frame {
		cmd := Send
		if i == len(frame)-1 {
			cmd |= Eof
		}
		if _, err := c.conn.Write([]byte{cmd, b}); err != nil {
			return fmt.Errorf("socket488: send failed: %w", err)
		}
	}
	return nil
}

// Poll issues REQ commands until the peer offers TIMEOUT, assembling
// whatever OFFER bytes arrive into one delivery to the subscribed
// listener. A peer EOF flag ends the poll early.
func (c *Conn) Poll() error {
	var data []byte
	ack := byte(0)

	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
			return fmt.Errorf("socket488: set deadline: %w", err)
		}
		if _, err := c.conn.Write([]byte{Req | ack}); err != nil {
			return fmt.Errorf("socket488: req failed: %w", err)
		}

		hdr := make([]byte, 1)
		if _, err := c.conn.Read(hdr); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			return fmt.Errorf("socket488: read header: %w", err)
		}
		if hdr[0]&Timeout != 0 {
			break
		}

		b := make([]byte, 1)
		if _, err := c.conn.Read(b); err != nil {
			return fmt.Errorf("socket488: read data byte: %w", err)
		}
		data = append(data, b[0])
		ack = Ack

		if hdr[0]&Eof != 0 {
			break
		}
	}

	if len(data) > 0 && c.listener != nil {
		log.WithField("component", "socket488").Debugf("socket488: delivered %d bytes", len(data))
		c.listener.Handle(data)
	}
	return nil
}
