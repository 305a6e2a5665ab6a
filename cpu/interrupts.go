package cpu

import "github.com/finchwillow/dmgo/addr"

// serviceInterruptIfPending runs the 5 m-cycle interrupt dispatch sequence
// if IME is set and a requested interrupt is enabled, in priority order
// (VBlank highest). Returns true if it ran.
func (c *CPU) serviceInterruptIfPending() bool {
	if !c.ime {
		return false
	}

	selected, ok := c.selectInterrupt()
	if !ok {
		return false
	}

	c.ime = false
	c.imeDelay = 0
	c.halt = running

	c.internalDelay()
	c.internalDelay()

	pc := c.Regs.PC
	c.Regs.SP--
	c.writeByte(c.Regs.SP, uint8(pc>>8))
	selected, ok = c.reselect(selected, ok)

	c.Regs.SP--
	c.writeByte(c.Regs.SP, uint8(pc))
	selected, ok = c.reselect(selected, ok)

	if ok {
		c.Regs.PC = selected.Vector()
		c.bus.ClearInterruptFlag(selected)
	} else {
		// The two stack writes raced with a change to IE/IF (e.g. a write
		// into the interrupt controller's own address) and cancelled every
		// candidate: the vector fetch degrades to $0000.
		c.Regs.PC = 0x0000
	}
	c.internalDelay()

	return true
}

func (c *CPU) selectInterrupt() (addr.Interrupt, bool) {
	pending := c.bus.PendingInterruptEnable() & c.bus.PendingInterruptFlag() & 0x1F
	if pending == 0 {
		return 0, false
	}
	for _, candidate := range addr.PriorityOrder {
		if pending&(1<<candidate.Bit()) != 0 {
			return candidate, true
		}
	}
	return 0, false
}

// reselect re-evaluates the pending set after a push byte lands, in case
// that write cleared the interrupt controller's own state.
func (c *CPU) reselect(current addr.Interrupt, wasOK bool) (addr.Interrupt, bool) {
	pending := c.bus.PendingInterruptEnable() & c.bus.PendingInterruptFlag() & 0x1F
	if wasOK && pending&(1<<current.Bit()) != 0 {
		return current, true
	}
	for _, candidate := range addr.PriorityOrder {
		if pending&(1<<candidate.Bit()) != 0 {
			return candidate, true
		}
	}
	return 0, false
}
