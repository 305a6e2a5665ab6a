package cartridge

import "github.com/finchwillow/dmgo/addr"

// MBC is the interface every memory bank controller variant implements.
// Addresses passed in are already known to fall in $0000-$7FFF (ROM window,
// also where bank-control writes land) or $A000-$BFFF (external RAM window).
type MBC interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)

	// Dirty reports whether external RAM has been written since the last
	// ClearDirty, for the host's battery-save flush cadence.
	Dirty() bool
	ClearDirty()
	// RAM exposes the battery-backed external RAM for save/restore.
	RAM() []byte

	// BankState/RestoreBankState snapshot and restore the controller's bank
	// registers, for save states. The fields not relevant to a given variant
	// are left zero.
	BankState() BankSnapshot
	RestoreBankState(BankSnapshot)
}

// BankSnapshot is a union of every MBC variant's bank-register state.
type BankSnapshot struct {
	RAMEnabled bool
	Bank1      uint8 // MBC1 5-bit ROM bank / MBC2 ROM bank
	Bank2      uint8 // MBC1 2-bit secondary bank
	Mode       uint8 // MBC1 mode select
	ROMBankLo  uint8 // MBC5
	ROMBankHi  uint8 // MBC5
	RAMBank    uint8 // MBC5
}

const romBankSize = 0x4000
const ramBankSize = 0x2000

// romOnly implements cartridges with no banking hardware at all: bank 0 is
// permanently mapped low, bank 1 permanently mapped high, no external RAM.
type romOnly struct {
	rom []byte
}

func newROMOnly(rom []byte) *romOnly { return &romOnly{rom: rom} }

func (m *romOnly) Read(address uint16) uint8 {
	if int(address) < len(m.rom) {
		return m.rom[address]
	}
	return 0xFF
}

func (m *romOnly) Write(address uint16, value uint8) {}
func (m *romOnly) Dirty() bool                        { return false }
func (m *romOnly) ClearDirty()                        {}
func (m *romOnly) RAM() []byte                        { return nil }
func (m *romOnly) BankState() BankSnapshot             { return BankSnapshot{} }
func (m *romOnly) RestoreBankState(BankSnapshot)       {}

// mbc1 implements the MBC1 banking scheme: a 5-bit primary ROM bank
// register, a 2-bit secondary register shared between the high ROM bits and
// the RAM bank depending on mode, and a RAM-enable latch.
type mbc1 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	bank1      uint8 // 5 bits, $2000-$3FFF, never 0
	bank2      uint8 // 2 bits, $4000-$5FFF
	mode       uint8 // 1 bit, $6000-$7FFF

	romBanks int
	dirty    bool
}

func newMBC1(rom []byte, ramBanks int) *mbc1 {
	return &mbc1{
		rom:      rom,
		ram:      make([]byte, max(ramBanks, 0)*ramBankSize),
		bank1:    1,
		romBanks: len(rom) / romBankSize,
	}
}

func (m *mbc1) Read(address uint16) uint8 {
	switch {
	case address <= addr.ROMBank0End:
		bank := uint8(0)
		if m.mode == 1 {
			bank = m.bank2 << 5
		}
		return m.romByte(bank, address)
	case address >= addr.ROMBankNStart && address <= addr.ROMBankNEnd:
		bank := (m.bank2 << 5) | m.bank1
		return m.romByte(bank, address-addr.ROMBankNStart)
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		bank := uint8(0)
		if m.mode == 1 {
			bank = m.bank2
		}
		return m.ramByte(bank, address-addr.ExtRAMStart)
	}
	return 0xFF
}

func (m *mbc1) romByte(bank uint8, offset uint16) uint8 {
	idx := int(bank)*romBankSize + int(offset)
	if m.romBanks > 0 {
		idx %= len(m.rom)
	}
	if idx < 0 || idx >= len(m.rom) {
		return 0xFF
	}
	return m.rom[idx]
}

func (m *mbc1) ramByte(bank uint8, offset uint16) uint8 {
	idx := int(bank)*ramBankSize + int(offset)
	if idx >= len(m.ram) {
		idx %= len(m.ram)
	}
	return m.ram[idx]
}

func (m *mbc1) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address >= 0x2000 && address <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bank1 = bank
	case address >= 0x4000 && address <= 0x5FFF:
		m.bank2 = value & 0x03
	case address >= 0x6000 && address <= 0x7FFF:
		m.mode = value & 0x01
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		bank := uint8(0)
		if m.mode == 1 {
			bank = m.bank2
		}
		idx := int(bank)*ramBankSize + int(address-addr.ExtRAMStart)
		if idx >= len(m.ram) {
			idx %= len(m.ram)
		}
		m.ram[idx] = value
		m.dirty = true
	}
}

func (m *mbc1) Dirty() bool   { return m.dirty }
func (m *mbc1) ClearDirty()   { m.dirty = false }
func (m *mbc1) RAM() []byte   { return m.ram }

func (m *mbc1) BankState() BankSnapshot {
	return BankSnapshot{RAMEnabled: m.ramEnabled, Bank1: m.bank1, Bank2: m.bank2, Mode: m.mode}
}

func (m *mbc1) RestoreBankState(s BankSnapshot) {
	m.ramEnabled, m.bank1, m.bank2, m.mode = s.RAMEnabled, s.Bank1, s.Bank2, s.Mode
}

// mbc2 implements the MBC2 scheme: address bit 8 of a low-region write
// chooses between RAM-enable and ROM-bank-select, and RAM is a built-in
// 512x4-bit array mirrored across the whole $A000-$BFFF window with the
// upper nibble always reading as 1s.
type mbc2 struct {
	rom []byte
	ram [512]byte // only the low nibble of each byte is meaningful

	ramEnabled bool
	romBank    uint8
	romBanks   int
	dirty      bool
}

func newMBC2(rom []byte) *mbc2 {
	return &mbc2{rom: rom, romBank: 1, romBanks: len(rom) / romBankSize}
}

func (m *mbc2) Read(address uint16) uint8 {
	switch {
	case address <= addr.ROMBank0End:
		return m.romByte(0, address)
	case address >= addr.ROMBankNStart && address <= addr.ROMBankNEnd:
		return m.romByte(m.romBank, address-addr.ROMBankNStart)
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[(address-addr.ExtRAMStart)%512] | 0xF0
	}
	return 0xFF
}

func (m *mbc2) romByte(bank uint8, offset uint16) uint8 {
	idx := int(bank)*romBankSize + int(offset)
	if m.romBanks > 0 {
		idx %= len(m.rom)
	}
	if idx < 0 || idx >= len(m.rom) {
		return 0xFF
	}
	return m.rom[idx]
}

func (m *mbc2) Write(address uint16, value uint8) {
	switch {
	case address <= 0x3FFF:
		if address&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		if !m.ramEnabled {
			return
		}
		m.ram[(address-addr.ExtRAMStart)%512] = value & 0x0F
		m.dirty = true
	}
}

func (m *mbc2) Dirty() bool { return m.dirty }
func (m *mbc2) ClearDirty() { m.dirty = false }
func (m *mbc2) RAM() []byte { return m.ram[:] }

func (m *mbc2) BankState() BankSnapshot {
	return BankSnapshot{RAMEnabled: m.ramEnabled, Bank1: m.romBank}
}

func (m *mbc2) RestoreBankState(s BankSnapshot) {
	m.ramEnabled, m.romBank = s.RAMEnabled, s.Bank1
}

// mbc5 implements the MBC5 scheme: a full 9-bit ROM bank register with no
// forced-to-1 quirk, and a 4-bit RAM bank register.
type mbc5 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBankLo  uint8
	romBankHi  uint8
	ramBank    uint8
	romBanks   int
	dirty      bool
}

func newMBC5(rom []byte, ramBanks int) *mbc5 {
	return &mbc5{
		rom:       rom,
		ram:       make([]byte, max(ramBanks, 0)*ramBankSize),
		romBankLo: 1,
		romBanks:  len(rom) / romBankSize,
	}
}

func (m *mbc5) romBank() uint16 {
	return bit9(m.romBankHi, m.romBankLo)
}

func bit9(hi, lo uint8) uint16 {
	return (uint16(hi&1) << 8) | uint16(lo)
}

func (m *mbc5) Read(address uint16) uint8 {
	switch {
	case address <= addr.ROMBank0End:
		return m.romByte(0, address)
	case address >= addr.ROMBankNStart && address <= addr.ROMBankNEnd:
		return m.romByte(m.romBank(), address-addr.ROMBankNStart)
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ramByte(address - addr.ExtRAMStart)
	}
	return 0xFF
}

func (m *mbc5) romByte(bank uint16, offset uint16) uint8 {
	idx := int(bank)*romBankSize + int(offset)
	if m.romBanks > 0 {
		idx %= len(m.rom)
	}
	if idx < 0 || idx >= len(m.rom) {
		return 0xFF
	}
	return m.rom[idx]
}

func (m *mbc5) ramByte(offset uint16) uint8 {
	idx := int(m.ramBank)*ramBankSize + int(offset)
	if idx >= len(m.ram) {
		idx %= len(m.ram)
	}
	return m.ram[idx]
}

func (m *mbc5) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address >= 0x2000 && address <= 0x2FFF:
		m.romBankLo = value
	case address >= 0x3000 && address <= 0x3FFF:
		m.romBankHi = value & 0x01
	case address >= 0x4000 && address <= 0x5FFF:
		m.ramBank = value & 0x0F
	case address >= addr.ExtRAMStart && address <= addr.ExtRAMEnd:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		idx := int(m.ramBank)*ramBankSize + int(address-addr.ExtRAMStart)
		if idx >= len(m.ram) {
			idx %= len(m.ram)
		}
		m.ram[idx] = value
		m.dirty = true
	}
}

func (m *mbc5) Dirty() bool { return m.dirty }
func (m *mbc5) ClearDirty() { m.dirty = false }
func (m *mbc5) RAM() []byte { return m.ram }

func (m *mbc5) BankState() BankSnapshot {
	return BankSnapshot{
		RAMEnabled: m.ramEnabled, ROMBankLo: m.romBankLo, ROMBankHi: m.romBankHi, RAMBank: m.ramBank,
	}
}

func (m *mbc5) RestoreBankState(s BankSnapshot) {
	m.ramEnabled, m.romBankLo, m.romBankHi, m.ramBank = s.RAMEnabled, s.ROMBankLo, s.ROMBankHi, s.RAMBank
}
