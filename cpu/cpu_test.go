package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchwillow/dmgo/addr"
)

// fakeBus is a flat 64KB RAM with a settable IE/IF pair and no peripherals
// to tick, enough to drive the CPU core in isolation.
type fakeBus struct {
	mem [0x10000]byte
	ie  uint8
	iff uint8
}

func newFakeBus(program ...uint8) *fakeBus {
	b := &fakeBus{}
	copy(b.mem[0x0100:], program)
	return b
}

func (b *fakeBus) Read(a uint16) uint8            { return b.mem[a] }
func (b *fakeBus) Write(a uint16, v uint8)        { b.mem[a] = v }
func (b *fakeBus) TickPeripherals()               {}
func (b *fakeBus) PendingInterruptEnable() uint8  { return b.ie }
func (b *fakeBus) PendingInterruptFlag() uint8    { return b.iff }
func (b *fakeBus) ClearInterruptFlag(i addr.Interrupt) {
	b.iff &^= uint8(i)
}

func TestLDImmediate8(t *testing.T) {
	bus := newFakeBus(0x3E, 0x42) // LD A,0x42
	c := New(bus)
	c.Step()
	assert.Equal(t, uint8(0x42), c.Regs.A)
}

func TestADDSetsHalfCarryWithoutCarry(t *testing.T) {
	bus := newFakeBus(0xC6, 0x01) // ADD A,0x01
	c := New(bus)
	c.Regs.A = 0x0F
	c.Step()
	assert.Equal(t, uint8(0x10), c.Regs.A)
	assert.True(t, c.Regs.HalfCarry())
	assert.False(t, c.Regs.Carry())
	assert.False(t, c.Regs.Zero())
}

func TestDAAAfterAddCorrectsToBCD(t *testing.T) {
	bus := newFakeBus(
		0x80,       // ADD A,B
		0x27,       // DAA
	)
	c := New(bus)
	c.Regs.A = 0x15
	c.Regs.B = 0x27
	c.Step() // ADD A,B: 0x15 + 0x27 = 0x3C in binary
	require.Equal(t, uint8(0x3C), c.Regs.A)

	c.Step() // DAA should correct 0x3C to the BCD result of 15+27=42
	assert.Equal(t, uint8(0x42), c.Regs.A)
	assert.False(t, c.Regs.Carry())
}

func TestIllegalOpcodeIsSurfacedNotPaniced(t *testing.T) {
	bus := newFakeBus(0xD3) // one of the eleven unused DMG opcodes
	c := New(bus)
	assert.NotPanics(t, func() { c.Step() })

	var illegal *IllegalOpcodeError
	require.True(t, errors.As(c.Err(), &illegal))
	assert.Equal(t, uint8(0xD3), illegal.Opcode)
}

func TestHaltBugDoubleExecutesFollowingByte(t *testing.T) {
	// HALT with IME=0 and an interrupt already pending enters the HALT
	// bug state instead of actually halting: the very next fetch (of the
	// byte after HALT) does not advance PC, so the following single-byte
	// instruction (INC B here) ends up decoded twice.
	bus := newFakeBus(0x76, 0x04) // HALT, INC B
	bus.ie = uint8(addr.VBlank)
	bus.iff = uint8(addr.VBlank)

	c := New(bus)
	c.ime = false

	c.Step() // HALT enters the haltBug state, IME stays 0
	require.Equal(t, haltBug, c.halt)

	c.Step() // first decode of INC B: executes, but PC does not advance
	assert.Equal(t, uint8(1), c.Regs.B)
	assert.Equal(t, running, c.halt)

	c.Step() // second decode of the same byte, now PC advances normally
	assert.Equal(t, uint8(2), c.Regs.B)
}

func TestInterruptDispatchPushesPCAndJumpsToVector(t *testing.T) {
	bus := newFakeBus(0x00) // NOP, never actually reached
	bus.ie = uint8(addr.Timer)
	bus.iff = uint8(addr.Timer)

	c := New(bus)
	c.ime = true
	c.Regs.SP = 0xFFFE
	startPC := c.Regs.PC

	c.Step()

	assert.Equal(t, addr.Timer.Vector(), c.Regs.PC)
	assert.False(t, c.ime)
	assert.Equal(t, uint16(0xFFFC), c.Regs.SP)
	lo := bus.Read(0xFFFC)
	hi := bus.Read(0xFFFD)
	assert.Equal(t, startPC, uint16(hi)<<8|uint16(lo))
}
