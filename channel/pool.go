package channel

import "github.com/xd2031/core/wireformat"

// MaxChannels bounds the channel pool (spec §5: "Channels are a bounded
// pool (MAX_CHANNELS, 8). Opening beyond the limit fails with
// NO_CHANNEL.").
const MaxChannels = 8

// Pool is the statically bounded set of open channels.
type Pool struct {
	slots [MaxChannels]*Channel
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Reserve opens a new channel. If id is >= 0 that specific slot is
// reserved (direct-buffer-style numbered open); if id < 0 the first free
// slot is used and its index becomes the channel id. It fails with
// wireformat.ErrNoChannel if the requested slot is taken or the pool is
// full.
func (p *Pool) Reserve(id int8, provider Provider, access wireformat.Access) (*Channel, error) {
	if id >= 0 {
		if int(id) >= MaxChannels || p.slots[id] != nil {
			return nil, wireformat.ErrNoChannel
		}
		ch := New(id, provider, access)
		p.slots[id] = ch
		return ch, nil
	}

	for i := 0; i < MaxChannels; i++ {
		if p.slots[i] == nil {
			ch := New(int8(i), provider, access)
			p.slots[i] = ch
			return ch, nil
		}
	}
	return nil, wireformat.ErrNoChannel
}

// Get returns the channel bound to id, if any.
func (p *Pool) Get(id int8) (*Channel, bool) {
	if id < 0 || int(id) >= MaxChannels {
		return nil, false
	}
	ch := p.slots[id]
	return ch, ch != nil
}

// Release closes and frees the slot for id.
func (p *Pool) Release(id int8) {
	if id < 0 || int(id) >= MaxChannels {
		return
	}
	if ch := p.slots[id]; ch != nil {
		ch.Close()
		p.slots[id] = nil
	}
}

// Open counts how many slots are currently occupied.
func (p *Pool) Open() int {
	n := 0
	for _, ch := range p.slots {
		if ch != nil {
			n++
		}
	}
	return n
}
