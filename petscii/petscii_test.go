package petscii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToASCIILowercasesUpperPetscii(t *testing.T) {
	assert.Equal(t, byte('a'), ToASCII('A'))
	assert.Equal(t, byte('A'), ToASCII(0xC1))
}

func TestRoundTripThroughUpperRange(t *testing.T) {
	for v := byte(0x41); v < 0x5b; v++ {
		assert.Equal(t, v, ToPETSCII(ToASCII(v)))
	}
}

func TestStringToASCII(t *testing.T) {
	assert.Equal(t, []byte("hello"), StringToASCII([]byte("HELLO")))
}
