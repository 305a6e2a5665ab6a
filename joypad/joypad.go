// Package joypad implements the button matrix exposed at $FF00: two
// mutually-exclusive column selectors choose which 4-button group is
// visible, and a falling edge on a newly-selected line raises an interrupt.
package joypad

import (
	"github.com/finchwillow/dmgo/addr"
	"github.com/finchwillow/dmgo/bit"
)

// Button identifies one of the eight DMG buttons.
type Button uint8

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// Joypad tracks button state as two active-low nibbles (d-pad, buttons)
// and the CPU's column selection, with host input latched once per frame
// and edge-detected against the previous latch.
type Joypad struct {
	selectButtons bool // P1 bit 5 cleared -> button column selected
	selectDpad    bool // P1 bit 4 cleared -> d-pad column selected

	dpad    uint8 // active-low nibble: bit0 right, bit1 left, bit2 up, bit3 down
	buttons uint8 // active-low nibble: bit0 A, bit1 B, bit2 select, bit3 start

	// latched holds the most recent handle_events() snapshot, refreshed once
	// per emulated frame; previous is compared against it for edge detection.
	latchedDpad, latchedButtons       uint8
	previousDpad, previousButtons     uint8

	RequestInterrupt func(addr.Interrupt)
}

// New returns a Joypad with no buttons pressed.
func New() *Joypad {
	return &Joypad{
		dpad:            0x0F,
		buttons:         0x0F,
		latchedDpad:     0x0F,
		latchedButtons:  0x0F,
		previousDpad:    0x0F,
		previousButtons: 0x0F,
	}
}

// State is the host-facing snapshot of which buttons are held, used by
// handle_events-style callbacks.
type State struct {
	Up, Down, Left, Right   bool
	A, B, Start, Select     bool
}

// Latch records a new host input snapshot as the current frame's state and
// fires Joypad interrupts for any column-selected button that just went
// from released to pressed, per the spec's "defer fire until CPU selects
// the column" rule applied at latch time against whichever column is
// selected right now.
func (j *Joypad) Latch(s State) {
	j.previousDpad, j.previousButtons = j.latchedDpad, j.latchedButtons

	j.latchedDpad = packActiveLow(!s.Right, !s.Left, !s.Up, !s.Down)
	j.latchedButtons = packActiveLow(!s.A, !s.B, !s.Select, !s.Start)

	j.dpad, j.buttons = j.latchedDpad, j.latchedButtons
	j.fireEdgeInterrupts()
}

func packActiveLow(bit0, bit1, bit2, bit3 bool) uint8 {
	v := uint8(0)
	if bit0 {
		v |= 1 << 0
	}
	if bit1 {
		v |= 1 << 1
	}
	if bit2 {
		v |= 1 << 2
	}
	if bit3 {
		v |= 1 << 3
	}
	return v
}

func (j *Joypad) fireEdgeInterrupts() {
	if j.RequestInterrupt == nil {
		return
	}
	dpadFell := j.previousDpad &^ j.latchedDpad
	buttonsFell := j.previousButtons &^ j.latchedButtons

	if j.selectDpad && dpadFell != 0 {
		j.RequestInterrupt(addr.Joypad)
	}
	if j.selectButtons && buttonsFell != 0 {
		j.RequestInterrupt(addr.Joypad)
	}
}

// Snapshot is the joypad's resumable state, for save states.
type Snapshot struct {
	SelectButtons, SelectDpad     bool
	Dpad, Buttons                 uint8
	LatchedDpad, LatchedButtons   uint8
	PreviousDpad, PreviousButtons uint8
}

// Snapshot captures the joypad's resumable state.
func (j *Joypad) Snapshot() Snapshot {
	return Snapshot{
		SelectButtons: j.selectButtons, SelectDpad: j.selectDpad,
		Dpad: j.dpad, Buttons: j.buttons,
		LatchedDpad: j.latchedDpad, LatchedButtons: j.latchedButtons,
		PreviousDpad: j.previousDpad, PreviousButtons: j.previousButtons,
	}
}

// Restore replaces the joypad's state with a previously captured Snapshot.
func (j *Joypad) Restore(s Snapshot) {
	j.selectButtons, j.selectDpad = s.SelectButtons, s.SelectDpad
	j.dpad, j.buttons = s.Dpad, s.Buttons
	j.latchedDpad, j.latchedButtons = s.LatchedDpad, s.LatchedButtons
	j.previousDpad, j.previousButtons = s.PreviousDpad, s.PreviousButtons
}

// Read returns the $FF00 register value: bits 7-6 always read 1, bits 5-4
// reflect the selector, bits 3-0 the selected column (or $0F if neither
// column is selected).
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0)
	if !j.selectButtons {
		result |= 1 << 5
	}
	if !j.selectDpad {
		result |= 1 << 4
	}

	switch {
	case j.selectButtons && j.selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	case j.selectButtons:
		result |= j.buttons & 0x0F
	case j.selectDpad:
		result |= j.dpad & 0x0F
	default:
		result |= 0x0F
	}
	return result
}

// Write handles a write to $FF00; only bits 5-4 (the column selectors) are
// writable, and selecting a column can retroactively surface an
// already-latched edge.
func (j *Joypad) Write(value uint8) {
	prevButtons, prevDpad := j.selectButtons, j.selectDpad
	j.selectButtons = !bit.IsSet(5, value)
	j.selectDpad = !bit.IsSet(4, value)

	if !prevDpad && j.selectDpad {
		j.maybeFireOnSelect(j.previousDpad, j.latchedDpad)
	}
	if !prevButtons && j.selectButtons {
		j.maybeFireOnSelect(j.previousButtons, j.latchedButtons)
	}
}

func (j *Joypad) maybeFireOnSelect(previous, current uint8) {
	if j.RequestInterrupt == nil {
		return
	}
	if previous&^current != 0 {
		j.RequestInterrupt(addr.Joypad)
	}
}
