package cpu

import "fmt"

// State is a point-in-time register snapshot for debug tooling.
type State struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
}

// State returns a snapshot of the CPU's architectural state.
func (c *CPU) State() State {
	return State{
		A: c.Regs.A, F: c.Regs.F,
		B: c.Regs.B, C: c.Regs.C,
		D: c.Regs.D, E: c.Regs.E,
		H: c.Regs.H, L: c.Regs.L,
		SP: c.Regs.SP, PC: c.Regs.PC,
		IME:    c.ime,
		Halted: c.halt == halted,
	}
}

// Disassemble renders a rough mnemonic for the opcode at the given address,
// reading through peek (which must not have side effects), for debuggers.
// It does not handle every addressing mode in full detail - it's a
// best-effort trace aid, not a reference disassembler.
func Disassemble(peek func(uint16) uint8, pc uint16) string {
	opcode := peek(pc)
	if opcode == 0xCB {
		sub := peek(pc + 1)
		x, y, z := sub>>6, (sub>>3)&7, sub&7
		switch x {
		case 0:
			return fmt.Sprintf("%s %s", cbRotNames[y], r8Names[z])
		case 1:
			return fmt.Sprintf("BIT %d,%s", y, r8Names[z])
		case 2:
			return fmt.Sprintf("RES %d,%s", y, r8Names[z])
		default:
			return fmt.Sprintf("SET %d,%s", y, r8Names[z])
		}
	}

	x, y, z := opcode>>6, (opcode>>3)&7, opcode&7
	p, q := y>>1, y&1

	switch {
	case opcode == 0x00:
		return "NOP"
	case opcode == 0x76:
		return "HALT"
	case x == 1:
		return fmt.Sprintf("LD %s,%s", r8Names[y], r8Names[z])
	case x == 2:
		return fmt.Sprintf("%s A,%s", aluNames[y], r8Names[z])
	case x == 0 && z == 1 && q == 0:
		return fmt.Sprintf("LD %s,0x%04X", rpNames[p], combine16(peek, pc))
	case x == 0 && z == 6:
		return fmt.Sprintf("LD %s,0x%02X", r8Names[y], peek(pc+1))
	case x == 3 && z == 2 && y >= 4:
		return "LD A/(..)"
	case x == 3 && z == 5 && q == 0:
		return fmt.Sprintf("PUSH %s", rp2Names[p])
	case x == 3 && z == 1 && q == 0:
		return fmt.Sprintf("POP %s", rp2Names[p])
	case x == 3 && z == 4 && y <= 3:
		return fmt.Sprintf("CALL %s,0x%04X", ccNames[y], combine16(peek, pc))
	case x == 3 && z == 3 && y == 0:
		return fmt.Sprintf("JP 0x%04X", combine16(peek, pc))
	default:
		return fmt.Sprintf("DB 0x%02X", opcode)
	}
}

func combine16(peek func(uint16) uint8, pc uint16) uint16 {
	lo := peek(pc + 1)
	hi := peek(pc + 2)
	return uint16(hi)<<8 | uint16(lo)
}

var cbRotNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
var aluNames = [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}
