package transport

import "errors"

var (
	// ErrBusy is returned by a Bus.Send that cannot accept a frame right
	// now; the multiplexer retries on the next Tick. Named after the
	// teacher's ErrTxBusy ("Sending rejected because driver is busy").
	ErrBusy = errors.New("transport: send rejected, bus busy")

	ErrNotConnected = errors.New("transport: bus not connected")
)
