package socket488

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got [][]byte
}

func (r *recorder) Handle(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.got = append(r.got, cp)
}

// fakePeer answers REQ with a fixed sequence of bytes, then TIMEOUT, and
// records whatever it is SEND'd.
func fakePeer(t *testing.T, conn net.Conn, offer []byte) (received chan []byte) {
	received = make(chan []byte, 1)
	go func() {
		var got []byte
		var offered int
		buf := make([]byte, 2)
		for {
			n, err := conn.Read(buf[:1])
			if err != nil || n == 0 {
				received <- got
				return
			}
			switch buf[0] & 0x03 {
			case Send & 0x03:
				if _, err := conn.Read(buf[1:2]); err != nil {
					received <- got
					return
				}
				got = append(got, buf[1])
				if buf[0]&Eof != 0 {
					received <- got
					return
				}
			case Req & 0x03:
				if offered < len(offer) {
					conn.Write([]byte{Offer, offer[offered]})
					offered++
				} else {
					conn.Write([]byte{Offer | Timeout})
				}
			}
		}
	}()
	return received
}

func TestSendWritesEachByteWithFinalEOF(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	received := fakePeer(t, server, nil)
	c := New(client)

	err := c.Send([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	client.Close()

	got := <-received
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func TestPollAssemblesOfferedBytesUntilTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	fakePeer(t, server, []byte{0xAA, 0xBB})
	c := New(client)
	rec := &recorder{}
	require.NoError(t, c.Subscribe(rec))

	require.NoError(t, c.Poll())
	time.Sleep(10 * time.Millisecond)

	require.Len(t, rec.got, 1)
	assert.Equal(t, []byte{0xAA, 0xBB}, rec.got[0])
}
