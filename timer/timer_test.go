package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finchwillow/dmgo/addr"
)

func newTestTimer() *Timer {
	t := New()
	t.SetInternalClock(0)
	return t
}

func TestTIMAOverflowReloadIsDelayedByOneCycle(t *testing.T) {
	tm := newTestTimer()
	tm.Write(addr.TAC, 0x05) // enabled, bit 3 selected
	tm.Write(addr.TMA, 0x42)
	tm.Write(addr.TIMA, 0xFF)

	fired := false
	tm.RequestInterrupt = func(i addr.Interrupt) {
		if i == addr.Timer {
			fired = true
		}
	}

	// Advance until the TAC-selected bit falls and TIMA overflows to 0.
	for i := 0; i < 32 && tm.Read(addr.TIMA) != 0; i++ {
		tm.Tick()
	}
	assert.Equal(t, uint8(0x00), tm.Read(addr.TIMA), "TIMA should have overflowed to 0")
	assert.False(t, fired, "reload/interrupt must not fire on the same cycle as the overflow")

	tm.Tick()
	assert.Equal(t, uint8(0x42), tm.Read(addr.TIMA), "TIMA reloads from TMA one cycle after overflow")
	assert.True(t, fired, "timer interrupt fires once the delayed reload completes")
}

func TestWritingTIMADuringReloadWindowCancelsReload(t *testing.T) {
	tm := newTestTimer()
	tm.Write(addr.TAC, 0x05)
	tm.Write(addr.TMA, 0x42)
	tm.Write(addr.TIMA, 0xFF)

	for i := 0; i < 32 && tm.Read(addr.TIMA) != 0; i++ {
		tm.Tick()
	}
	assert.Equal(t, uint8(0x00), tm.Read(addr.TIMA))

	// Write during the delay window: the written value sticks, TMA is
	// never loaded in.
	tm.Write(addr.TIMA, 0x99)
	tm.Tick()
	assert.Equal(t, uint8(0x99), tm.Read(addr.TIMA), "reload was cancelled by the mid-window write")
}

func TestTACGlitchFiresOnDisablingHighSelectedBit(t *testing.T) {
	tm := newTestTimer()
	tm.SetInternalClock(1 << 3) // bit 3 (TAC select 01) currently high
	tm.Write(addr.TAC, 0x05)    // enabled, selecting bit 3

	before := tm.Read(addr.TIMA)
	// Disabling the timer while its selected bit is high is itself a
	// falling edge and increments TIMA once.
	tm.Write(addr.TAC, 0x00)
	assert.Equal(t, before+1, tm.Read(addr.TIMA))
}

func TestDIVWriteResetsInternalClock(t *testing.T) {
	tm := newTestTimer()
	tm.SetInternalClock(0xABCD)
	tm.Write(addr.DIV, 0xFF) // value is ignored, any write resets to 0
	assert.Equal(t, uint8(0), tm.Read(addr.DIV))
}
