// Package cpu implements the LR35902-class CPU core: instruction decode and
// execution expressed as individual m-cycle bus accesses, so the bus can
// tick every peripheral in lockstep with instruction timing rather than in
// one lump sum per instruction.
package cpu

import (
	"github.com/finchwillow/dmgo/addr"
)

// Bus is everything the CPU needs from the rest of the machine. Read/Write
// touch the address space; TickPeripherals advances every other component
// (timer, PPU, APU, DMA) by exactly one m-cycle and must be called once for
// every m-cycle the CPU spends, including internal (non-memory) delays.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	TickPeripherals()

	// PendingInterruptEnable/Flag expose IE/IF without costing a bus cycle,
	// the way the real interrupt controller is wired directly to the CPU.
	PendingInterruptEnable() uint8
	PendingInterruptFlag() uint8
	ClearInterruptFlag(i addr.Interrupt)
}

// haltState distinguishes ordinary execution from the two special states a
// HALT instruction can leave the CPU in.
type haltState uint8

const (
	running haltState = iota
	halted
	haltBug // HALT executed with IME=0 and an interrupt already pending: PC fails to advance once
)

// CPU is the DMG-class instruction execution core.
type CPU struct {
	Regs Registers
	bus  Bus

	ime      bool
	imeDelay int // EI arms this to 2; counts down once per completed instruction, then sets ime
	halt     haltState

	stopped bool
	lastErr error

	cycleCounter int
}

// New returns a CPU wired to bus, with registers at their documented
// post-boot-ROM values.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.Regs.SetAF(0x01B0)
	c.Regs.SetBC(0x0013)
	c.Regs.SetDE(0x00D8)
	c.Regs.SetHL(0x014D)
	c.Regs.SP = 0xFFFE
	c.Regs.PC = 0x0100
	return c
}

// IME reports whether interrupts are currently enabled, for save states and tests.
func (c *CPU) IME() bool { return c.ime }

// Halted reports whether the CPU is in the HALT low-power state.
func (c *CPU) Halted() bool { return c.halt == halted }

// Step executes exactly one instruction (or one HALT/STOP idle tick),
// servicing a pending interrupt first if one is ready, and returns the
// number of m-cycles consumed.
func (c *CPU) Step() int {
	cyclesBefore := c.cycleCounter
	if c.lastErr != nil {
		c.tick()
		return c.cycleCounter - cyclesBefore
	}
	if c.serviceInterruptIfPending() {
		return c.cycleCounter - cyclesBefore
	}

	if c.halt == halted {
		if c.bus.PendingInterruptEnable()&c.bus.PendingInterruptFlag()&0x1F != 0 {
			c.halt = running
		} else {
			c.tick()
			return c.cycleCounter - cyclesBefore
		}
	}

	c.execOne()
	c.advanceIMEDelay()
	return c.cycleCounter - cyclesBefore
}

func (c *CPU) advanceIMEDelay() {
	if c.imeDelay == 0 {
		return
	}
	c.imeDelay--
	if c.imeDelay == 0 {
		c.ime = true
	}
}

func (c *CPU) tick() { c.bus.TickPeripherals(); c.cycleCounter++ }

func (c *CPU) readByte(address uint16) uint8 {
	v := c.bus.Read(address)
	c.tick()
	return v
}

func (c *CPU) writeByte(address uint16, value uint8) {
	c.bus.Write(address, value)
	c.tick()
}

func (c *CPU) fetch() uint8 {
	v := c.readByte(c.Regs.PC)
	if c.halt == haltBug {
		c.halt = running
	} else {
		c.Regs.PC++
	}
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) internalDelay() { c.tick() }

func (c *CPU) push(value uint16) {
	c.Regs.SP--
	c.writeByte(c.Regs.SP, uint8(value>>8))
	c.Regs.SP--
	c.writeByte(c.Regs.SP, uint8(value))
}

func (c *CPU) pop() uint16 {
	lo := c.readByte(c.Regs.SP)
	c.Regs.SP++
	hi := c.readByte(c.Regs.SP)
	c.Regs.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// Snapshot is the full internal CPU state needed to resume execution
// bit-for-bit, for save states. Unlike State, it includes the scheduling
// state (IME delay, halt variant) a debugger doesn't need but a resumed
// emulator does.
type Snapshot struct {
	Regs     Registers
	IME      bool
	IMEDelay int
	Halt     uint8
	Stopped  bool
}

// Snapshot captures the CPU's resumable state.
func (c *CPU) Snapshot() Snapshot {
	return Snapshot{
		Regs:     c.Regs,
		IME:      c.ime,
		IMEDelay: c.imeDelay,
		Halt:     uint8(c.halt),
		Stopped:  c.stopped,
	}
}

// Restore replaces the CPU's state with a previously captured Snapshot.
func (c *CPU) Restore(s Snapshot) {
	c.Regs = s.Regs
	c.ime = s.IME
	c.imeDelay = s.IMEDelay
	c.halt = haltState(s.Halt)
	c.stopped = s.Stopped
	c.lastErr = nil
}

// Reset restores power-on register state.
func (c *CPU) Reset() {
	regs := Registers{}
	regs.SetAF(0x01B0)
	regs.SetBC(0x0013)
	regs.SetDE(0x00D8)
	regs.SetHL(0x014D)
	regs.SP = 0xFFFE
	regs.PC = 0x0100
	c.Regs = regs
	c.ime = false
	c.imeDelay = 0
	c.halt = running
	c.stopped = false
	c.lastErr = nil
}
