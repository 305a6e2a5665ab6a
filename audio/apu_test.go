package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finchwillow/dmgo/addr"
)

func TestRegisterMasking(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)

	a.WriteRegister(addr.NR10, 0x12)
	a.WriteRegister(addr.NR11, 0x34)
	assert.Equal(t, uint8(0x12|0x80), a.ReadRegister(addr.NR10), "NR10 bit7 always reads 1")
	assert.Equal(t, uint8(0x34|0x3F), a.ReadRegister(addr.NR11), "NR11 lower 6 bits always read 1")
}

func TestWriteOnlyRegistersReadAsFF(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)

	a.WriteRegister(addr.NR13, 0x12)
	a.WriteRegister(addr.NR23, 0x34)
	a.WriteRegister(addr.NR33, 0x56)
	a.WriteRegister(addr.NR31, 0x78)
	a.WriteRegister(addr.NR41, 0x9A)

	assert.Equal(t, uint8(0xFF), a.ReadRegister(addr.NR13))
	assert.Equal(t, uint8(0xFF), a.ReadRegister(addr.NR23))
	assert.Equal(t, uint8(0xFF), a.ReadRegister(addr.NR33))
	assert.Equal(t, uint8(0xFF), a.ReadRegister(addr.NR31))
	assert.Equal(t, uint8(0xFF), a.ReadRegister(addr.NR41))
}

func TestWritesIgnoredWhenPoweredOff(t *testing.T) {
	a := New()

	a.WriteRegister(addr.NR11, 0xFF)
	assert.Equal(t, uint8(0x3F), a.ReadRegister(addr.NR11), "writes must be ignored while the APU is off")
}

func TestPowerOffClearsRegistersButNotWaveRAM(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)
	a.WriteRegister(addr.NR10, 0x7F)
	a.WriteRegister(addr.WaveRAMStart, 0xAB)

	a.WriteRegister(addr.NR52, 0x00)

	assert.Equal(t, uint8(0x80), a.ReadRegister(addr.NR10), "NR10 cleared, bit7 always reads 1")
	assert.Equal(t, uint8(0xAB), a.ReadRegister(addr.WaveRAMStart), "wave RAM survives power-off")
	assert.Equal(t, uint8(0x70), a.ReadRegister(addr.NR52)&0x70, "unused NR52 bits read as 1 regardless of power state")
}

func TestLengthCounterWritesLandWhilePoweredOff(t *testing.T) {
	a := New()
	// APU stays off for the whole test.

	a.WriteRegister(addr.NR11, 0x3F) // length data 63 -> counter 1
	assert.Equal(t, uint16(1), a.ch[0].length)

	a.WriteRegister(addr.NR21, 0x00) // length data 0 -> counter 64
	assert.Equal(t, uint16(64), a.ch[1].length)

	a.WriteRegister(addr.NR31, 0xFF) // length data 255 -> counter 1
	assert.Equal(t, uint16(1), a.ch[2].length)

	a.WriteRegister(addr.NR41, 0x3F)
	assert.Equal(t, uint16(1), a.ch[3].length)

	assert.Equal(t, uint8(0x3F), a.ReadRegister(addr.NR11), "only the length bits land; the register itself stays off-gated")
}

func TestWaveRAMAccessWhenUnlocked(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)

	pattern := []uint8{0x01, 0x23, 0x45, 0x67}
	for i, v := range pattern {
		a.WriteRegister(addr.WaveRAMStart+uint16(i), v)
	}
	for i, v := range pattern {
		assert.Equal(t, v, a.ReadRegister(addr.WaveRAMStart+uint16(i)))
	}
}

func TestLengthReloadOnNR11Write(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)

	a.WriteRegister(addr.NR11, 0x80|0x01) // length data 1 -> counter 63
	assert.Equal(t, uint16(63), a.ch[0].length)

	a.WriteRegister(addr.NR11, 0x80|0x00) // length data 0 -> counter 64
	assert.Equal(t, uint16(64), a.ch[0].length)
}

func TestDACDisableTurnsChannelOffImmediately(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)

	a.WriteRegister(addr.NR12, 0xF0) // volume 15, DAC on
	a.WriteRegister(addr.NR14, 0x80) // trigger
	assert.True(t, a.ch[0].enabled)

	a.WriteRegister(addr.NR12, 0x00) // volume 0, envelope flat: DAC off
	assert.False(t, a.ch[0].enabled)
}

func TestChannel1SweepOverflowDisablesChannelOnTrigger(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)
	a.WriteRegister(addr.NR10, 0x11) // sweep period 1, up, shift 1
	a.WriteRegister(addr.NR12, 0xF0) // volume 15, DAC on
	a.WriteRegister(addr.NR13, 0x80) // period low byte
	a.WriteRegister(addr.NR14, 0x87) // period high bits + trigger: period 1920

	assert.True(t, a.ch[0].dacEnabled)
	assert.False(t, a.ch[0].enabled, "sweep overflow computed at trigger time must immediately disable the channel")
	assert.Equal(t, uint8(0), a.ReadRegister(addr.NR52)&0x01, "NR52 status bit0 reflects the disabled channel")
}

func TestFrameSequencerStepsWrapAfterEight(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)

	for i := 0; i < 8; i++ {
		a.TickSequencer()
	}
	assert.Equal(t, 0, a.step)
}

func TestTickSequencerClocksLengthAtEvenSteps(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)
	a.WriteRegister(addr.NR12, 0xF0)
	a.WriteRegister(addr.NR11, 0x3F) // length data 63 -> counter 1
	a.WriteRegister(addr.NR14, 0xC0) // trigger + length enable

	assert.True(t, a.ch[0].enabled)
	assert.Equal(t, uint16(1), a.ch[0].length)

	a.TickSequencer() // processes step 0, which clocks length
	assert.Equal(t, uint16(0), a.ch[0].length)
	assert.False(t, a.ch[0].enabled, "channel turns off once its length counter reaches zero")
}

func TestTickSequencerClocksEnvelopeAtStepSeven(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)
	a.WriteRegister(addr.NR22, 0x09) // volume 0, envelope up, pace 1
	a.WriteRegister(addr.NR24, 0x80) // trigger

	assert.Equal(t, uint8(0), a.ch[1].volume)

	for i := 0; i < 8; i++ {
		a.TickSequencer()
	}
	assert.Equal(t, uint8(1), a.ch[1].volume, "envelope clocks once per full 8-step sequencer cycle")
	assert.Equal(t, 0, a.step)
}

func TestGetSamplesZeroFillsOnUnderrun(t *testing.T) {
	a := New()
	samples := a.GetSamples(4)
	assert.Len(t, samples, 8)
	for _, s := range samples {
		assert.Equal(t, int16(0), s)
	}
}

func TestGetSamplesProducesNonZeroOutputForActiveChannel(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)
	a.WriteRegister(addr.NR12, 0xF0) // volume 15, DAC on
	a.WriteRegister(addr.NR11, 0x80) // duty 2
	a.WriteRegister(addr.NR13, 0x00)
	a.WriteRegister(addr.NR14, 0x87) // trigger
	a.WriteRegister(addr.NR51, 0x11) // CH1 routed to both left and right
	a.WriteRegister(addr.NR50, 0x77) // non-zero master volume both sides

	for i := 0; i < 200; i++ {
		a.Tick()
	}
	samples := a.GetSamples(50)

	nonZero := false
	for _, s := range samples {
		if s != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "an active channel routed to output with non-zero master volume must produce audible samples")
}

func TestToggleChannelSilencesItsContribution(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x80)
	a.WriteRegister(addr.NR12, 0xF0)
	a.WriteRegister(addr.NR11, 0x80)
	a.WriteRegister(addr.NR13, 0x00)
	a.WriteRegister(addr.NR14, 0x87)
	a.WriteRegister(addr.NR51, 0x11)
	a.WriteRegister(addr.NR50, 0x77)

	a.ToggleChannel(0)
	for i := 0; i < 200; i++ {
		a.Tick()
	}
	samples := a.GetSamples(50)
	for _, s := range samples {
		assert.Equal(t, int16(0), s)
	}
}
