package diskimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: D64 geometry LBA table.
func TestD64LBA(t *testing.T) {
	g := GeometryD64
	assert.Equal(t, 0, g.LBA(1, 0))
	assert.Equal(t, 357, g.LBA(18, 0))
	assert.Equal(t, 682, g.LBA(35, 16))
	assert.Equal(t, -1, g.LBA(36, 0))
	assert.Equal(t, 683, g.Blocks)
}

func TestIdentifyD64WithAndWithoutErrorTable(t *testing.T) {
	g, hasErr, ok := Identify(683 * 256)
	require.True(t, ok)
	assert.Equal(t, D64, g.Kind)
	assert.False(t, hasErr)

	g, hasErr, ok = Identify(683*256 + 683)
	require.True(t, ok)
	assert.Equal(t, D64, g.Kind)
	assert.True(t, hasErr)
}

func TestIdentifyUnknownSize(t *testing.T) {
	_, _, ok := Identify(12345)
	assert.False(t, ok)
}

func newBlankD64(t *testing.T) *Image {
	t.Helper()
	img, err := New(GeometryD64, make([]byte, GeometryD64.Blocks*256), nil)
	require.NoError(t, err)
	return img
}

// S6: merging two images of one disk recovers the good copy of a block
// the other image reports bad, and flags a block both call good but
// disagree on as weak.
func TestMergeRecoversBadBlockAndFlagsWeak(t *testing.T) {
	a := newBlankD64(t)
	b := newBlankD64(t)
	a.ErrorTable = make([]byte, GeometryD64.Blocks)
	b.ErrorTable = make([]byte, GeometryD64.Blocks)
	for i := range a.ErrorTable {
		a.ErrorTable[i] = 1
		b.ErrorTable[i] = 1
	}

	// block 5: a is bad, b is good with distinct content.
	a.ErrorTable[5] = 29
	copy(b.Data[5*256:6*256], bytesOf(0xAA, 256))

	// block 9: both report good but disagree: weak block.
	copy(a.Data[9*256:10*256], bytesOf(0x11, 256))
	copy(b.Data[9*256:10*256], bytesOf(0x22, 256))

	merged, weak, err := Merge([]*Image{a, b}, 0x01)
	require.NoError(t, err)

	assert.Equal(t, bytesOf(0xAA, 256), merged.Data[5*256:6*256])
	assert.True(t, weak[9])
	assert.Equal(t, byte(0x01), merged.ErrorTable[9])
	assert.False(t, weak[5])
}

func TestMergeRejectsMismatchedGeometry(t *testing.T) {
	a := newBlankD64(t)
	d71, err := New(GeometryD71, make([]byte, GeometryD71.Blocks*256), nil)
	require.NoError(t, err)

	_, _, err = Merge([]*Image{a, d71}, 0x01)
	assert.Error(t, err)
}

func bytesOf(v byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = v
	}
	return out
}
