package savestate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchwillow/dmgo"
	"github.com/finchwillow/dmgo/savestate"
)

// newROMOnlyImage builds a minimal ROM-only cartridge image: just large
// enough to carry a valid header, with no MBC to bank-switch.
func newROMOnlyImage() []byte {
	data := make([]byte, 0x8000)
	data[0x147] = 0x00 // ROM ONLY
	data[0x148] = 0x00 // 2 banks
	data[0x149] = 0x00 // no RAM
	copy(data[0x134:0x134+16], []byte("SAVETEST"))
	return data
}

func TestSaveLoadRoundTripPreservesCPUState(t *testing.T) {
	data := newROMOnlyImage()
	m, err := dmgo.NewWithROM(data)
	require.NoError(t, err)

	m.CPU.Regs.A = 0x42
	m.CPU.Regs.B = 0x99
	m.CPU.Regs.SP = 0xFFF0
	m.CPU.Regs.PC = 0x0150

	buf, err := savestate.Save(m)
	require.NoError(t, err)

	fresh, err := dmgo.NewWithROM(data)
	require.NoError(t, err)

	require.NoError(t, savestate.Load(fresh, buf))

	assert.Equal(t, uint8(0x42), fresh.CPU.Regs.A)
	assert.Equal(t, uint8(0x99), fresh.CPU.Regs.B)
	assert.Equal(t, uint16(0xFFF0), fresh.CPU.Regs.SP)
	assert.Equal(t, uint16(0x0150), fresh.CPU.Regs.PC)
}

func TestLoadRejectsUndecodableDataAndLeavesMachineUntouched(t *testing.T) {
	data := newROMOnlyImage()
	m, err := dmgo.NewWithROM(data)
	require.NoError(t, err)
	m.CPU.Regs.A = 0x11

	buf, err := savestate.Save(m)
	require.NoError(t, err)

	// Corrupt the leading gob-encoded version field by feeding garbage
	// bytes instead, which must fail to decode cleanly.
	corrupt := append([]byte{0xFF, 0xFF, 0xFF}, buf...)

	err = savestate.Load(m, corrupt)
	assert.Error(t, err)
	assert.Equal(t, uint8(0x11), m.CPU.Regs.A, "a failed load must leave the machine state untouched")
}

func TestSaveLoadRoundTripPreservesWRAMAndInterruptRegisters(t *testing.T) {
	data := newROMOnlyImage()
	m, err := dmgo.NewWithROM(data)
	require.NoError(t, err)

	m.Write(0xC000, 0xAB)
	m.Write(0xFFFF, 0x1F) // IE

	buf, err := savestate.Save(m)
	require.NoError(t, err)

	fresh, err := dmgo.NewWithROM(data)
	require.NoError(t, err)
	require.NoError(t, savestate.Load(fresh, buf))

	assert.Equal(t, uint8(0xAB), fresh.Read(0xC000))
	assert.Equal(t, uint8(0x1F), fresh.Read(0xFFFF))
}
