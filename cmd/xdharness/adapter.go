package main

import (
	"fmt"
	"time"

	"github.com/xd2031/core/channel"
	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/transport"
)

// muxProvider adapts a transport.Multiplexer's bind/submit/tick API into
// the synchronous channel.Provider a scenario.Run drives, busy-waiting
// on Tick the way Multiplexer.BootSync does internally.
type muxProvider struct {
	mux     *transport.Multiplexer
	timeout time.Duration
}

func newMuxProvider(mux *transport.Multiplexer) *muxProvider {
	return &muxProvider{mux: mux, timeout: 2 * time.Second}
}

func (p *muxProvider) SubmitCall(channelID int8, tx packet.Packet, cb channel.SubmitCallback) error {
	var reply packet.Packet
	done := false

	p.mux.Bind(channelID, func(pkt packet.Packet) bool {
		reply = pkt
		done = true
		return false
	})
	if err := p.mux.Submit(tx); err != nil {
		p.mux.Unbind(channelID)
		return err
	}

	deadline := time.Now().Add(p.timeout)
	for !done {
		p.mux.Tick()
		if time.Now().After(deadline) {
			p.mux.Unbind(channelID)
			return fmt.Errorf("xdharness: timed out waiting for reply on channel %d", channelID)
		}
	}
	cb(reply, nil)
	return nil
}

func (p *muxProvider) Submit(channelID int8, tx packet.Packet) error {
	return p.mux.Submit(tx)
}
