package cpu

var r8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var rpNames = [4]string{"BC", "DE", "HL", "SP"}
var rp2Names = [4]string{"BC", "DE", "HL", "AF"}
var ccNames = [4]string{"NZ", "Z", "NC", "C"}

// Err returns the most recent illegal-opcode error, if the CPU hit one. A
// CPU that has hit an illegal opcode stops advancing PC (matching real
// hardware lockup) until Reset or Restore; each Step then only ticks the
// peripherals for one m-cycle.
func (c *CPU) Err() error { return c.lastErr }

func (c *CPU) readR8(index uint8) uint8 {
	switch index {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	case 6:
		return c.readByte(c.Regs.HL())
	default:
		return c.Regs.A
	}
}

func (c *CPU) writeR8(index uint8, v uint8) {
	switch index {
	case 0:
		c.Regs.B = v
	case 1:
		c.Regs.C = v
	case 2:
		c.Regs.D = v
	case 3:
		c.Regs.E = v
	case 4:
		c.Regs.H = v
	case 5:
		c.Regs.L = v
	case 6:
		c.writeByte(c.Regs.HL(), v)
	default:
		c.Regs.A = v
	}
}

func (c *CPU) readRP(p uint8) uint16 {
	switch p {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.Regs.HL()
	default:
		return c.Regs.SP
	}
}

func (c *CPU) writeRP(p uint8, v uint16) {
	switch p {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.Regs.SetHL(v)
	default:
		c.Regs.SP = v
	}
}

func (c *CPU) readRP2(p uint8) uint16 {
	switch p {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.Regs.HL()
	default:
		return c.Regs.AF()
	}
}

func (c *CPU) writeRP2(p uint8, v uint16) {
	switch p {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.Regs.SetHL(v)
	default:
		c.Regs.SetAF(v)
	}
}

func (c *CPU) condition(y uint8) bool {
	switch y {
	case 0:
		return !c.Regs.Zero()
	case 1:
		return c.Regs.Zero()
	case 2:
		return !c.Regs.Carry()
	default:
		return c.Regs.Carry()
	}
}

func (c *CPU) applyALU(op uint8, operand uint8) {
	switch op {
	case 0:
		c.Regs.A = c.add8(c.Regs.A, operand, false)
	case 1:
		c.Regs.A = c.add8(c.Regs.A, operand, c.Regs.Carry())
	case 2:
		c.Regs.A = c.sub8(c.Regs.A, operand, false)
	case 3:
		c.Regs.A = c.sub8(c.Regs.A, operand, c.Regs.Carry())
	case 4:
		c.Regs.A = c.and8(c.Regs.A, operand)
	case 5:
		c.Regs.A = c.xor8(c.Regs.A, operand)
	case 6:
		c.Regs.A = c.or8(c.Regs.A, operand)
	default:
		c.cp8(c.Regs.A, operand)
	}
}

func (c *CPU) applyRot(op uint8, v uint8) uint8 {
	switch op {
	case 0:
		return c.rlc(v)
	case 1:
		return c.rrc(v)
	case 2:
		return c.rl(v)
	case 3:
		return c.rr(v)
	case 4:
		return c.sla(v)
	case 5:
		return c.sra(v)
	case 6:
		return c.swap(v)
	default:
		return c.srl(v)
	}
}

// execOne fetches and runs a single instruction, following the classic
// x/y/z/p/q Z80 opcode decomposition: x=op>>6, y=(op>>3)&7, z=op&7,
// p=y>>1, q=y&1.
func (c *CPU) execOne() {
	opcode := c.fetch()
	x, y, z := opcode>>6, (opcode>>3)&7, opcode&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		c.execX0(y, z, p, q)
	case 1:
		if z == 6 && y == 6 {
			c.execHalt()
			return
		}
		c.writeR8(y, c.readR8(z))
	case 2:
		c.applyALU(y, c.readR8(z))
	default:
		c.execX3(opcode, y, z, p, q)
	}
}

func (c *CPU) execX0(y, z, p, q uint8) {
	switch z {
	case 0:
		c.execX0Z0(y)
	case 1:
		if q == 0 {
			c.writeRP(p, c.fetch16())
		} else {
			c.addHL(c.readRP(p))
			c.internalDelay()
		}
	case 2:
		c.execX0Z2(p, q)
	case 3:
		c.internalDelay()
		if q == 0 {
			c.writeRP(p, c.readRP(p)+1)
		} else {
			c.writeRP(p, c.readRP(p)-1)
		}
	case 4:
		c.writeR8(y, c.inc8(c.readR8(y)))
	case 5:
		c.writeR8(y, c.dec8(c.readR8(y)))
	case 6:
		c.writeR8(y, c.fetch())
	case 7:
		c.execX0Z7(y)
	}
}

func (c *CPU) execX0Z0(y uint8) {
	switch y {
	case 0:
		// NOP
	case 1:
		addr16 := c.fetch16()
		c.writeByte(addr16, uint8(c.Regs.SP))
		c.writeByte(addr16+1, uint8(c.Regs.SP>>8))
	case 2:
		c.stopped = true
		c.fetch() // STOP is followed by an ignored padding byte
	case 3:
		offset := int8(c.fetch())
		c.internalDelay()
		c.Regs.PC = uint16(int32(c.Regs.PC) + int32(offset))
	default:
		offset := int8(c.fetch())
		if c.condition(y - 4) {
			c.internalDelay()
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(offset))
		}
	}
}

func (c *CPU) execX0Z2(p, q uint8) {
	hl := c.Regs.HL()
	if q == 0 {
		switch p {
		case 0:
			c.writeByte(c.Regs.BC(), c.Regs.A)
		case 1:
			c.writeByte(c.Regs.DE(), c.Regs.A)
		case 2:
			c.writeByte(hl, c.Regs.A)
			c.Regs.SetHL(hl + 1)
		default:
			c.writeByte(hl, c.Regs.A)
			c.Regs.SetHL(hl - 1)
		}
		return
	}
	switch p {
	case 0:
		c.Regs.A = c.readByte(c.Regs.BC())
	case 1:
		c.Regs.A = c.readByte(c.Regs.DE())
	case 2:
		c.Regs.A = c.readByte(hl)
		c.Regs.SetHL(hl + 1)
	default:
		c.Regs.A = c.readByte(hl)
		c.Regs.SetHL(hl - 1)
	}
}

func (c *CPU) execX0Z7(y uint8) {
	switch y {
	case 0:
		c.Regs.A = c.rlc(c.Regs.A)
		c.Regs.setZero(false)
	case 1:
		c.Regs.A = c.rrc(c.Regs.A)
		c.Regs.setZero(false)
	case 2:
		c.Regs.A = c.rl(c.Regs.A)
		c.Regs.setZero(false)
	case 3:
		c.Regs.A = c.rr(c.Regs.A)
		c.Regs.setZero(false)
	case 4:
		c.daa()
	case 5:
		c.Regs.A = ^c.Regs.A
		c.Regs.setSubtract(true)
		c.Regs.setHalfCarry(true)
	case 6:
		c.Regs.setSubtract(false)
		c.Regs.setHalfCarry(false)
		c.Regs.setCarry(true)
	case 7:
		c.Regs.setSubtract(false)
		c.Regs.setHalfCarry(false)
		c.Regs.setCarry(!c.Regs.Carry())
	}
}

func (c *CPU) execX3(opcode, y, z, p, q uint8) {
	switch z {
	case 0:
		c.execX3Z0(y)
	case 1:
		c.execX3Z1(p, q)
	case 2:
		c.execX3Z2(y)
	case 3:
		c.execX3Z3(opcode, y)
	case 4:
		if y > 3 {
			c.illegal(opcode)
			return
		}
		addr16 := c.fetch16()
		if c.condition(y) {
			c.internalDelay()
			c.push(c.Regs.PC)
			c.Regs.PC = addr16
		}
	case 5:
		if q == 0 {
			c.internalDelay()
			c.push(c.readRP2(p))
			return
		}
		if p != 0 {
			c.illegal(opcode)
			return
		}
		addr16 := c.fetch16()
		c.internalDelay()
		c.push(c.Regs.PC)
		c.Regs.PC = addr16
	case 6:
		c.applyALU(y, c.fetch())
	case 7:
		c.internalDelay()
		c.push(c.Regs.PC)
		c.Regs.PC = uint16(y) * 8
	}
}

func (c *CPU) execX3Z0(y uint8) {
	switch y {
	case 4:
		offset := c.fetch()
		c.writeByte(0xFF00+uint16(offset), c.Regs.A)
	case 5:
		offset := int8(c.fetch())
		c.internalDelay()
		c.internalDelay()
		c.Regs.SP = c.addSPSigned(offset)
	case 6:
		offset := c.fetch()
		c.Regs.A = c.readByte(0xFF00 + uint16(offset))
	case 7:
		offset := int8(c.fetch())
		c.internalDelay()
		c.Regs.SetHL(c.addSPSigned(offset))
	default:
		c.internalDelay()
		if c.condition(y) {
			c.internalDelay()
			c.Regs.PC = c.pop()
		}
	}
}

func (c *CPU) execX3Z1(p, q uint8) {
	if q == 0 {
		c.writeRP2(p, c.pop())
		return
	}
	switch p {
	case 0:
		c.Regs.PC = c.pop()
		c.internalDelay()
	case 1:
		c.Regs.PC = c.pop()
		c.ime = true
		c.imeDelay = 0
		c.internalDelay()
	case 2:
		c.Regs.PC = c.Regs.HL()
	default:
		c.Regs.SP = c.Regs.HL()
		c.internalDelay()
	}
}

func (c *CPU) execX3Z2(y uint8) {
	switch y {
	case 4:
		c.writeByte(0xFF00+uint16(c.Regs.C), c.Regs.A)
	case 5:
		c.writeByte(c.fetch16(), c.Regs.A)
	case 6:
		c.Regs.A = c.readByte(0xFF00 + uint16(c.Regs.C))
	case 7:
		c.Regs.A = c.readByte(c.fetch16())
	default:
		addr16 := c.fetch16()
		if c.condition(y) {
			c.internalDelay()
			c.Regs.PC = addr16
		}
	}
}

func (c *CPU) execX3Z3(opcode, y uint8) {
	switch y {
	case 0:
		addr16 := c.fetch16()
		c.internalDelay()
		c.Regs.PC = addr16
	case 1:
		c.execCB()
	case 6:
		c.ime = false
		c.imeDelay = 0
	case 7:
		c.imeDelay = 2
	default:
		c.illegal(opcode)
	}
}

func (c *CPU) execCB() {
	opcode := c.fetch()
	x, y, z := opcode>>6, (opcode>>3)&7, opcode&7

	switch x {
	case 0:
		c.writeR8(z, c.applyRot(y, c.readR8(z)))
	case 1:
		c.bit(y, c.readR8(z))
	case 2:
		c.writeR8(z, res(y, c.readR8(z)))
	default:
		c.writeR8(z, set(y, c.readR8(z)))
	}
}

// execHalt enters the low-power HALT state, except for the well-known
// hardware bug: if IME is clear and an interrupt is already pending, the
// CPU doesn't actually halt and instead fails to advance PC on its next
// fetch, causing the following instruction's first byte to be read twice.
func (c *CPU) execHalt() {
	pending := c.bus.PendingInterruptEnable() & c.bus.PendingInterruptFlag() & 0x1F
	if !c.ime && pending != 0 {
		c.halt = haltBug
		return
	}
	c.halt = halted
}

func (c *CPU) illegal(opcode uint8) {
	c.lastErr = &IllegalOpcodeError{Opcode: opcode, PC: c.Regs.PC - 1}
	c.halt = halted
}
