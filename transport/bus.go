package transport

// ByteListener receives raw bytes read off a Bus. Handle must not block;
// a Multiplexer feeds the bytes straight into its packet decoder.
type ByteListener interface {
	Handle(data []byte)
}

// Bus is the transport-layer abstraction a Multiplexer runs over: a byte
// pipe with non-blocking send and a cooperative poll for inbound data.
// Adapted from the teacher's pkg/can.Bus (Connect/Disconnect/Send/
// Subscribe), with CAN frames replaced by raw byte slices and an added
// Poll so the whole stack stays driven by Multiplexer.Tick rather than a
// background reader goroutine.
type Bus interface {
	// Connect opens the underlying transport. Implementation-specific
	// arguments (address, baud rate, ...) are passed through.
	Connect(...any) error

	// Disconnect closes the underlying transport.
	Disconnect() error

	// Send attempts to write frame in one shot. It must return ErrBusy
	// (without blocking) if the transport cannot accept it right now;
	// the caller retries on a later Tick.
	Send(frame []byte) error

	// Subscribe registers the listener that Poll delivers inbound bytes
	// to. A Bus has at most one listener.
	Subscribe(listener ByteListener) error

	// Poll performs one non-blocking check for inbound data, delivering
	// any to the subscribed listener before returning.
	Poll() error
}
