// Package timer implements the DIV/TIMA/TMA/TAC system: a free-running
// 16-bit internal clock whose bits 6-13 are DIV, and a TIMA counter clocked
// by the falling edge of one of its bits, selected by TAC.
package timer

import "github.com/finchwillow/dmgo/addr"

var tacBit = [4]uint8{9, 3, 5, 7}

// Timer owns the internal 16-bit clock and the TIMA reload state machine,
// including the one-m-cycle-delayed TMA reload and its write-cancellation
// quirks.
type Timer struct {
	internalClock uint16
	tima          uint8
	tma           uint8
	tac           uint8

	lastSelectedBit bool // not read: checkFallingEdge compares the clock before and after each step

	// reload state machine: on TIMA 0xFF->0x00 overflow, the actual TMA
	// reload + interrupt request is delayed by one m-cycle. reloadPending
	// tracks that we're in that window; writtenThisCycle guards against a
	// write landing in the same m-cycle as the reload itself.
	reloadPending    bool
	writtenThisCycle bool

	// SequencerTick, if set, is invoked every time bit 10 of the internal
	// clock falls - the APU frame sequencer's clock source.
	SequencerTick func()
	// RequestInterrupt is invoked once per completed TIMA overflow reload.
	RequestInterrupt func(addr.Interrupt)
}

// New returns a Timer seeded the way a real DMG's internal counter is at
// power-on (an arbitrary non-zero value; tests that care seed it explicitly
// with SetInternalClock).
func New() *Timer {
	return &Timer{internalClock: 0xABCC}
}

// SetInternalClock seeds the free-running counter directly, used by tests.
// Restore sets the counter from its Snapshot without going through it.
func (t *Timer) SetInternalClock(v uint16) { t.internalClock = v }

// InternalClock returns the raw 16-bit counter, for save-state and tests.
func (t *Timer) InternalClock() uint16 { return t.internalClock }

// Tick advances the timer by one m-cycle (4 t-cycles), per spec's fused
// per-m-cycle coupling: every m-cycle the internal clock grows by 4
// regardless of what the CPU is doing.
func (t *Timer) Tick() {
	t.writtenThisCycle = false

	if t.reloadPending {
		t.completeReload()
	}

	before := t.internalClock
	t.internalClock += 4

	t.checkFallingEdge(before)

	if fellBit10(before, t.internalClock) && t.SequencerTick != nil {
		t.SequencerTick()
	}
}

func fellBit10(before, after uint16) bool {
	return before&(1<<10) != 0 && after&(1<<10) == 0
}

// checkFallingEdge increments TIMA if the TAC-selected bit fell during this
// step, starting the overflow reload sequence on 0xFF->0x00.
func (t *Timer) checkFallingEdge(before uint16) {
	if t.tac&0x04 == 0 {
		return
	}
	b := tacBit[t.tac&0x03]
	fell := before&(1<<b) != 0 && t.internalClock&(1<<b) == 0
	if !fell {
		return
	}
	t.incrementTIMA()
}

func (t *Timer) incrementTIMA() {
	t.tima++
	if t.tima == 0 {
		t.reloadPending = true
	}
}

func (t *Timer) completeReload() {
	t.reloadPending = false
	t.tima = t.tma
	t.writtenThisCycle = true
	if t.RequestInterrupt != nil {
		t.RequestInterrupt(addr.Timer)
	}
}

// Snapshot is the timer's resumable state, for save states.
type Snapshot struct {
	InternalClock    uint16
	TIMA, TMA, TAC   uint8
	ReloadPending    bool
	WrittenThisCycle bool
}

// Snapshot captures the timer's resumable state.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{
		InternalClock:    t.internalClock,
		TIMA:             t.tima,
		TMA:              t.tma,
		TAC:              t.tac,
		ReloadPending:    t.reloadPending,
		WrittenThisCycle: t.writtenThisCycle,
	}
}

// Restore replaces the timer's state with a previously captured Snapshot.
// Callbacks (SequencerTick, RequestInterrupt) are left untouched.
func (t *Timer) Restore(s Snapshot) {
	t.internalClock = s.InternalClock
	t.tima = s.TIMA
	t.tma = s.TMA
	t.tac = s.TAC
	t.reloadPending = s.ReloadPending
	t.writtenThisCycle = s.WrittenThisCycle
}

// Read returns the timer register at address, or 0xFF if address isn't one
// of DIV/TIMA/TMA/TAC.
func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case addr.DIV:
		return uint8(t.internalClock >> 6)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	default:
		return 0xFF
	}
}

// Write handles register writes, including the DIV-reset glitch, the
// TAC-change glitch, and the TIMA/TMA reload-window interactions.
func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case addr.DIV:
		t.resetDIV()
	case addr.TIMA:
		t.writeTIMA(value)
	case addr.TMA:
		t.writeTMA(value)
	case addr.TAC:
		t.writeTAC(value)
	}
}

func (t *Timer) resetDIV() {
	before := t.internalClock
	t.internalClock = 0
	t.checkFallingEdge(before)
}

func (t *Timer) writeTIMA(value uint8) {
	if t.reloadPending {
		// Writing TIMA during the reload-delay window cancels the pending
		// TMA reload; the written value sticks instead.
		t.reloadPending = false
		t.tima = value
		return
	}
	if t.writtenThisCycle {
		// This is the m-cycle the reload itself completed on: a plain
		// TIMA write is dropped in favor of the just-loaded TMA value.
		return
	}
	t.tima = value
}

func (t *Timer) writeTMA(value uint8) {
	t.tma = value
	if t.writtenThisCycle {
		// TMA written on the same m-cycle TIMA was just reloaded from it:
		// the reload also picks up the new value.
		t.tima = value
	}
}

func (t *Timer) writeTAC(value uint8) {
	wasEnabled := t.tac&0x04 != 0
	oldBit := tacBit[t.tac&0x03]
	newEnabled := value&0x04 != 0
	newBit := tacBit[value&0x03]

	oldHigh := wasEnabled && t.internalClock&(1<<oldBit) != 0
	newHigh := newEnabled && t.internalClock&(1<<newBit) != 0
	if oldHigh && !newHigh {
		t.incrementTIMA()
	}

	t.tac = value & 0x07
}
