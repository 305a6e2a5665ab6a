package dmgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchwillow/dmgo/backend/headless"
	"github.com/finchwillow/dmgo/joypad"
)

// newROMOnlyImage builds a minimal ROM-only cartridge: an infinite loop at
// the post-boot-ROM entry point so StepFrame has something to run without
// ever hitting an illegal opcode.
func newROMOnlyImage() []byte {
	data := make([]byte, 0x8000)
	data[0x147] = 0x00 // ROM ONLY
	data[0x148] = 0x00 // 2 banks
	data[0x149] = 0x00 // no RAM
	copy(data[0x134:0x134+16], []byte("LOOPTEST"))

	// JP 0x0100 at the CPU's post-boot-ROM entry point, looping forever on
	// itself.
	data[0x0100] = 0xC3
	data[0x0101] = 0x00
	data[0x0102] = 0x01
	return data
}

func TestStepFrameAdvancesAFullFrameAndProducesAFrameBuffer(t *testing.T) {
	m, err := NewWithROM(newROMOnlyImage())
	require.NoError(t, err)
	m.PPU.WriteRegister(0xFF40, 0x80) // LCDC: display on

	require.NoError(t, m.StepFrame())
	assert.NotNil(t, m.FrameBuffer())
}

func TestHeadlessBackendDrivesMultipleFrames(t *testing.T) {
	m, err := NewWithROM(newROMOnlyImage())
	require.NoError(t, err)
	m.PPU.WriteRegister(0xFF40, 0x80)

	host := headless.New()
	defer host.Close()

	for i := 0; i < 3; i++ {
		input, quit := host.PollInput()
		require.False(t, quit)
		m.LatchInput(input)
		require.NoError(t, m.StepFrame())
		host.BlitFrame(m.FrameBuffer())
		require.NoError(t, host.Present())
	}

	assert.Same(t, m.FrameBuffer(), host.LastFrame())
}

func TestHeadlessBackendQuitSignalStopsTheLoop(t *testing.T) {
	m, err := NewWithROM(newROMOnlyImage())
	require.NoError(t, err)

	host := headless.New()
	host.QuitSignal = true

	frames := 0
	for i := 0; i < 5; i++ {
		_, quit := host.PollInput()
		if quit {
			break
		}
		require.NoError(t, m.StepFrame())
		frames++
	}
	assert.Equal(t, 0, frames, "a quit signal on the very first poll must stop the loop before any frame runs")
}

func TestLatchInputForwardsToJoypad(t *testing.T) {
	m, err := NewWithROM(newROMOnlyImage())
	require.NoError(t, err)

	m.LatchInput(joypad.State{A: true})
	m.Write(0xFF00, 0xDF) // select buttons column
	assert.Equal(t, uint8(0x0E), m.Read(0xFF00)&0x0F, "A press should be observable through the joypad register")
}

func TestIllegalOpcodeSurfacesThroughStepFrame(t *testing.T) {
	data := make([]byte, 0x8000)
	data[0x147] = 0x00
	data[0x149] = 0x00
	data[0x0100] = 0xD3 // unused DMG opcode

	m, err := NewWithROM(data)
	require.NoError(t, err)

	err = m.StepFrame()
	assert.Error(t, err)
}

func TestSnapshotRestoreRoundTripsAcrossComponents(t *testing.T) {
	m, err := NewWithROM(newROMOnlyImage())
	require.NoError(t, err)

	m.CPU.Regs.A = 0x7F
	m.Write(0xC010, 0x55) // WRAM

	snap := m.Snapshot()

	fresh, err := NewWithROM(newROMOnlyImage())
	require.NoError(t, err)
	fresh.Restore(snap)

	assert.Equal(t, uint8(0x7F), fresh.CPU.Regs.A)
	assert.Equal(t, uint8(0x55), fresh.Read(0xC010))
}
