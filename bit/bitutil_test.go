package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.Equal(t, uint16(0xABCD), Combine(0xAB, 0xCD))
	assert.Equal(t, uint16(0x0000), Combine(0x00, 0x00))
	assert.Equal(t, uint16(0xFFFF), Combine(0xFF, 0xFF))
}

func TestIsSet(t *testing.T) {
	assert.True(t, IsSet(0, 0b0000_0001))
	assert.False(t, IsSet(0, 0b0000_0010))
	assert.True(t, IsSet(7, 0b1000_0000))
}

func TestSetAndReset(t *testing.T) {
	var v uint8
	v = Set(3, v)
	assert.Equal(t, uint8(0b0000_1000), v)
	v = Reset(3, v)
	assert.Equal(t, uint8(0), v)
}

func TestHighLow(t *testing.T) {
	assert.Equal(t, uint8(0xAB), High(0xABCD))
	assert.Equal(t, uint8(0xCD), Low(0xABCD))
}

func TestExtractBits(t *testing.T) {
	assert.Equal(t, uint8(0b010), ExtractBits(0b1010_1100, 6, 4))
	assert.Equal(t, uint8(0), ExtractBits(0b1010_1100, 1, 0))
}
