// Package dmgo wires every component - CPU, timer, PPU, APU, joypad, serial
// and cartridge - into one Machine that implements the fused per-m-cycle bus
// the CPU core expects: every memory access or internal delay ticks the
// timer, APU and PPU exactly once, in that order.
package dmgo

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/finchwillow/dmgo/addr"
	"github.com/finchwillow/dmgo/audio"
	"github.com/finchwillow/dmgo/cartridge"
	"github.com/finchwillow/dmgo/cpu"
	"github.com/finchwillow/dmgo/joypad"
	"github.com/finchwillow/dmgo/serial"
	"github.com/finchwillow/dmgo/timer"
	"github.com/finchwillow/dmgo/video"
)

// CyclesPerFrame is the fixed m-cycle length of one 154-line DMG frame.
const CyclesPerFrame = 17556

// Machine is the complete console: it owns every component and is the
// concrete implementation of cpu.Bus.
type Machine struct {
	CPU   *cpu.CPU
	Timer *timer.Timer
	PPU   *video.PPU
	APU   *audio.APU
	Pad   *joypad.Joypad
	Serial *serial.LogSink
	Cart  *cartridge.Cartridge

	wram [0x2000]byte
	hram [0x7F]byte
	ie   uint8
	ifReg uint8

	bootROM        []byte
	bootROMMapped  bool

	logger *slog.Logger
}

// New returns a Machine with a blank cartridge loaded, ready to accept a ROM.
func New() *Machine {
	m := &Machine{
		Timer: timer.New(),
		PPU:   video.New(),
		APU:   audio.New(),
		Pad:   joypad.New(),
		Cart:  cartridge.NewBlank(),
		logger: slog.Default(),
	}
	m.wireCallbacks()
	m.CPU = cpu.New(m)
	return m
}

// NewWithROM parses data as a cartridge image and returns a ready Machine.
func NewWithROM(data []byte) (*Machine, error) {
	cart, err := cartridge.New(data)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		Timer: timer.New(),
		PPU:   video.New(),
		APU:   audio.New(),
		Pad:   joypad.New(),
		Cart:  cart,
		logger: slog.Default(),
	}
	m.wireCallbacks()
	m.CPU = cpu.New(m)
	return m, nil
}

func (m *Machine) wireCallbacks() {
	m.Serial = serial.NewLogSink(func() { m.requestInterrupt(addr.Serial) })
	m.Timer.RequestInterrupt = m.requestInterrupt
	m.Timer.SequencerTick = m.APU.TickSequencer
	m.PPU.RequestInterrupt = m.requestInterrupt
	m.PPU.DMASourceRead = m.Read
	m.Pad.RequestInterrupt = m.requestInterrupt
}

// LoadBootROM installs a 256-byte boot ROM image that overlays $0000-$00FF
// until the game writes to $FF50.
func (m *Machine) LoadBootROM(data []byte) error {
	if len(data) != 0x100 {
		return fmt.Errorf("dmgo: boot ROM must be exactly 256 bytes, got %d", len(data))
	}
	m.bootROM = data
	m.bootROMMapped = true
	m.CPU.Regs.PC = 0x0000
	return nil
}

func (m *Machine) requestInterrupt(i addr.Interrupt) {
	m.ifReg |= uint8(i)
}

// PendingInterruptEnable implements cpu.Bus.
func (m *Machine) PendingInterruptEnable() uint8 { return m.ie }

// PendingInterruptFlag implements cpu.Bus.
func (m *Machine) PendingInterruptFlag() uint8 { return m.ifReg | 0xE0 }

// ClearInterruptFlag implements cpu.Bus.
func (m *Machine) ClearInterruptFlag(i addr.Interrupt) {
	m.ifReg &^= uint8(i)
}

// TickPeripherals implements cpu.Bus: one m-cycle of timer, then APU, then
// PPU, in that fixed order, per the fused timing model every memory access
// and internal CPU delay drives.
func (m *Machine) TickPeripherals() {
	m.Timer.Tick()
	m.APU.Tick()
	m.PPU.Tick()
	m.Serial.Tick(4)
}

// Read implements cpu.Bus: the full DMG memory map.
func (m *Machine) Read(address uint16) uint8 {
	switch {
	case m.bootROMMapped && address <= addr.BootROMEnd:
		return m.bootROM[address]
	case address <= addr.ROMBank0End, address >= addr.ROMBankNStart && address <= addr.ROMBankNEnd:
		return m.Cart.Read(address)
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		return m.PPU.ReadVRAM(address)
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		return m.Cart.Read(address)
	case address >= addr.WRAMStart && address <= addr.WRAMEnd:
		return m.wram[address-addr.WRAMStart]
	case address >= addr.EchoStart && address <= addr.EchoEnd:
		return m.wram[address-addr.EchoStart]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		return m.PPU.ReadOAM(address)
	case address >= addr.ProhibitedStart && address <= addr.ProhibitedEnd:
		return 0xFF
	case address >= addr.IOStart && address <= addr.IOEnd:
		return m.readIO(address)
	case address >= addr.HRAMStart && address <= addr.HRAMEnd:
		return m.hram[address-addr.HRAMStart]
	case address == addr.IE:
		return m.ie
	default:
		return 0xFF
	}
}

// Write implements cpu.Bus.
func (m *Machine) Write(address uint16, value uint8) {
	switch {
	case address <= addr.ROMBank0End, address >= addr.ROMBankNStart && address <= addr.ROMBankNEnd:
		m.Cart.Write(address, value)
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		m.PPU.WriteVRAM(address, value)
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		m.Cart.Write(address, value)
	case address >= addr.WRAMStart && address <= addr.WRAMEnd:
		m.wram[address-addr.WRAMStart] = value
	case address >= addr.EchoStart && address <= addr.EchoEnd:
		m.wram[address-addr.EchoStart] = value
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		m.PPU.WriteOAM(address, value)
	case address >= addr.ProhibitedStart && address <= addr.ProhibitedEnd:
		// writes silently discarded
	case address >= addr.IOStart && address <= addr.IOEnd:
		m.writeIO(address, value)
	case address >= addr.HRAMStart && address <= addr.HRAMEnd:
		m.hram[address-addr.HRAMStart] = value
	case address == addr.IE:
		m.ie = value
	}
}

func (m *Machine) readIO(address uint16) uint8 {
	switch {
	case address == addr.P1:
		return m.Pad.Read()
	case address == addr.SB, address == addr.SC:
		return m.Serial.Read(address)
	case address == addr.DIV, address == addr.TIMA, address == addr.TMA, address == addr.TAC:
		return m.Timer.Read(address)
	case address == addr.IF:
		return m.ifReg | 0xE0
	case address >= 0xFF10 && address <= 0xFF26, address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		return m.APU.ReadRegister(address)
	case address >= addr.LCDC && address <= addr.WX:
		return m.PPU.ReadRegister(address)
	case address == addr.BootROMDisable:
		if m.bootROMMapped {
			return 0x00
		}
		return 0x01
	default:
		return 0xFF
	}
}

func (m *Machine) writeIO(address uint16, value uint8) {
	switch {
	case address == addr.P1:
		m.Pad.Write(value)
	case address == addr.SB, address == addr.SC:
		m.Serial.Write(address, value)
	case address == addr.DIV, address == addr.TIMA, address == addr.TMA, address == addr.TAC:
		m.Timer.Write(address, value)
	case address == addr.IF:
		m.ifReg = value & 0x1F
	case address >= 0xFF10 && address <= 0xFF26, address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		m.APU.WriteRegister(address, value)
	case address >= addr.LCDC && address <= addr.WX:
		m.PPU.WriteRegister(address, value)
	case address == addr.BootROMDisable:
		if value != 0 {
			m.bootROMMapped = false
		}
	}
}

// Step executes one CPU instruction (ticking every peripheral in lockstep)
// and returns the number of m-cycles consumed. It surfaces a
// *cpu.IllegalOpcodeError rather than panicking if the decoded opcode is
// one of the eleven unused DMG opcodes.
func (m *Machine) Step() (int, error) {
	n := m.CPU.Step()
	return n, m.CPU.Err()
}

// StepFrame runs until at least one full frame (CyclesPerFrame m-cycles)
// has elapsed, stopping partway through only if the CPU hits an illegal
// opcode. A halted CPU keeps consuming m-cycles and does not stop it.
func (m *Machine) StepFrame() error {
	total := 0
	for total < CyclesPerFrame {
		n, err := m.Step()
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

// FrameBuffer returns the most recently completed video frame.
func (m *Machine) FrameBuffer() *video.FrameBuffer { return m.PPU.FrameBuffer() }

// LatchInput records a new host input snapshot for the joypad.
func (m *Machine) LatchInput(s joypad.State) { m.Pad.Latch(s) }

// FlushBatteryRAM writes the cartridge's external RAM to w whenever it
// carries a battery and has RAM (whether or not the RAM is dirty), then
// clears the dirty flag.
func (m *Machine) FlushBatteryRAM(w io.Writer) error {
	if !m.Cart.Header.HasBattery {
		return nil
	}
	ram := m.Cart.RAM()
	if ram == nil {
		return nil
	}
	if _, err := w.Write(ram); err != nil {
		return err
	}
	m.Cart.ClearRAMDirty()
	return nil
}

// LoadBatteryRAM restores previously-flushed external RAM, e.g. on boot.
func (m *Machine) LoadBatteryRAM(data []byte) {
	m.Cart.LoadRAM(data)
}

// Snapshot is a complete, serializable point-in-time capture of every
// component's resumable state: a post-order traversal of the component
// tree (CPU, then memory controller, then PPU including OAM DMA, then APU
// including wave RAM, then timer, then joypad), per the save-state data
// model. Pointers and host callbacks are never part of it - each
// component's Restore leaves its callbacks as they were.
type Snapshot struct {
	CPU     cpu.Snapshot
	Cart    cartridge.Snapshot
	PPU     video.Snapshot
	APU     audio.Snapshot
	Timer   timer.Snapshot
	Joypad  joypad.Snapshot
	Serial  serial.Snapshot
	WRAM    [0x2000]byte
	HRAM    [0x7F]byte
	IE      uint8
	IF      uint8
	BootROMMapped bool
}

// Snapshot captures the Machine's complete resumable state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		CPU:    m.CPU.Snapshot(),
		Cart:   m.Cart.Snapshot(),
		PPU:    m.PPU.Snapshot(),
		APU:    m.APU.Snapshot(),
		Timer:  m.Timer.Snapshot(),
		Joypad: m.Pad.Snapshot(),
		Serial: m.Serial.Snapshot(),
		WRAM:   m.wram,
		HRAM:   m.hram,
		IE:     m.ie,
		IF:     m.ifReg,
		BootROMMapped: m.bootROMMapped,
	}
}

// Restore replaces every component's state with a previously captured
// Snapshot. The cartridge must already be loaded with the ROM the
// snapshot was taken against; only its bank registers and RAM are restored.
func (m *Machine) Restore(s Snapshot) {
	m.CPU.Restore(s.CPU)
	m.Cart.Restore(s.Cart)
	m.PPU.Restore(s.PPU)
	m.APU.Restore(s.APU)
	m.Timer.Restore(s.Timer)
	m.Pad.Restore(s.Joypad)
	m.Serial.Restore(s.Serial)
	m.wram = s.WRAM
	m.hram = s.HRAM
	m.ie = s.IE
	m.ifReg = s.IF
	m.bootROMMapped = s.BootROMMapped
}

// Reset restores the CPU, timer, PPU, APU, WRAM, HRAM, IE/IF and the
// boot-ROM mapping to their power-on state and rebuilds the serial port.
// The joypad and the cartridge's bank registers and RAM are left as they are.
func (m *Machine) Reset() {
	m.CPU.Reset()
	*m.Timer = *timer.New()
	m.PPU.Reset()
	m.APU.Reset()
	m.wram = [0x2000]byte{}
	m.hram = [0x7F]byte{}
	m.ie = 0
	m.ifReg = 0
	m.bootROMMapped = m.bootROM != nil
	m.wireCallbacks()
}
