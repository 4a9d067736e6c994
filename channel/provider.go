package channel

import "github.com/xd2031/core/packet"

// SubmitCallback receives the reply packet of a completed submit_call,
// or a non-nil err if the provider could not complete the request.
type SubmitCallback func(reply packet.Packet, err error)

// Provider is the polymorphic backend a Channel binds to (spec §4.3): a
// disk-image handle, a direct buffer, a REL proxy, the server endpoint
// itself. Only SubmitCall and Submit are required; the rest are optional
// capabilities. Channel type-asserts only DirectoryConverter; it does not
// use ByteProvider, CharsetTag or ToProvider.
type Provider interface {
	// SubmitCall sends tx and invokes callback with the response body
	// once it arrives (request/response). channelID addresses the
	// provider-side resource, not necessarily the Channel's own id.
	SubmitCall(channelID int8, tx packet.Packet, callback SubmitCallback) error

	// Submit sends tx without waiting for a reply (fire-and-forget).
	Submit(channelID int8, tx packet.Packet) error
}

// ByteProvider is the optional byte-at-a-time shortcut a REL-proxy-style
// backend implements instead of (or alongside) buffer-level SubmitCall.
type ByteProvider interface {
	Get(channelID int8, preload bool) (b byte, eof bool, err error)
	Put(channelID int8, b byte, flush bool) error
}

// DirectoryConverter rewrites a host-format directory entry packet into
// the BASIC-line CBM presentation (spec §4.5.2).
type DirectoryConverter interface {
	ConvertDirectory(pkt packet.Packet) (packet.Packet, error)
}

// CharsetTag reports the character set a provider's payload bytes are
// encoded in. Channel does not consult it.
type CharsetTag interface {
	Charset() string
}

// ToProvider converts an outgoing packet (e.g. a PETSCII filename) into
// the provider's charset before it is submitted.
type ToProvider interface {
	ToProvider(pkt packet.Packet) (packet.Packet, error)
}
