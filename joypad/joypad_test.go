package joypad

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finchwillow/dmgo/addr"
)

func TestReadWithNoColumnSelected(t *testing.T) {
	j := New()
	assert.Equal(t, uint8(0xFF), j.Read())
}

func TestReadReflectsSelectedColumn(t *testing.T) {
	j := New()
	j.Latch(State{A: true, Up: true})

	j.Write(0xDF) // bit5 cleared: select buttons
	buttons := j.Read() & 0x0F
	assert.Equal(t, uint8(0x0E), buttons, "A pressed clears bit0 of the buttons nibble")

	j.Write(0xEF) // bit4 cleared: select d-pad
	dpad := j.Read() & 0x0F
	assert.Equal(t, uint8(0x0B), dpad, "Up pressed clears bit2 of the d-pad nibble")
}

func TestLatchFiresInterruptOnSelectedColumnPress(t *testing.T) {
	j := New()
	j.Write(0xDF) // buttons column selected up front

	fired := 0
	j.RequestInterrupt = func(i addr.Interrupt) {
		if i == addr.Joypad {
			fired++
		}
	}

	j.Latch(State{A: true})
	assert.Equal(t, 1, fired)

	// Pressing a d-pad button while the d-pad column isn't selected must
	// not fire an interrupt.
	j.Latch(State{A: true, Up: true})
	assert.Equal(t, 1, fired)
}

func TestSelectingAColumnSurfacesAnAlreadyLatchedEdge(t *testing.T) {
	j := New()
	// Up is already pressed before the d-pad column is ever selected.
	j.Latch(State{Up: true})

	fired := 0
	j.RequestInterrupt = func(i addr.Interrupt) {
		fired++
	}

	// Now the CPU selects the d-pad column for the first time: the
	// already-pressed button surfaces as a fresh edge.
	j.Write(0xEF)
	assert.Equal(t, 1, fired)
}
