package dirconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xd2031/core/wireformat"
)

// S2: directory conversion block-count line numbers.
func TestBlocksLineNumber(t *testing.T) {
	assert.Equal(t, uint16(3), BlocksLineNumber(510, false))
	assert.Equal(t, uint16(1), BlocksLineNumber(254, false))
	assert.Equal(t, uint16(0), BlocksLineNumber(0, false))
}

func TestBlocksLineNumberEstimateSkipsCorrection(t *testing.T) {
	// An estimate of exactly 2 blocks (as 2*256) should read back as 2,
	// not 3 (the uncorrected value would straddle the 254-byte boundary).
	assert.Equal(t, uint16(2), BlocksLineNumber(2*256, true))
}

func TestRenderLineFileEntry(t *testing.T) {
	e := Entry{
		Kind:   KindFile,
		Length: 254,
		Name:   []byte("HELLO"),
		Attrs:  Attrs{Type: wireformat.FilePRG},
	}
	line, err := RenderLine(e, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), line[len(line)-1], "BASIC line null terminator")
	assert.Contains(t, string(line), "\"")
}

func TestRenderLineFreeBlocksHasNoQuotedName(t *testing.T) {
	e := Entry{Kind: KindFreeBlocks}
	line, err := RenderLine(e, 0)
	require.NoError(t, err)
	assert.NotContains(t, string(line), "\"")
}
