// Package cartridge parses DMG ROM images and implements the memory bank
// controller variants that translate CPU addresses into ROM/RAM accesses.
package cartridge

import "fmt"

// Cartridge owns an immutable ROM image and routes $0000-$7FFF / $A000-$BFFF
// accesses through the MBC variant selected by the header.
type Cartridge struct {
	Header Header
	mbc    MBC
}

// New parses data as a ROM image and constructs the appropriate MBC.
// Fatal load errors (unsupported MBC, image too small) are returned rather
// than panicking, per the "fatal load errors surfaced before stepping
// begins" contract.
func New(data []byte) (*Cartridge, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("cartridge: %w", err)
	}

	var m MBC
	switch header.Type {
	case ROMOnly:
		m = newROMOnly(data)
	case MBC1Type:
		m = newMBC1(data, header.RAMBankCount)
	case MBC2Type:
		m = newMBC2(data)
	case MBC5Type:
		m = newMBC5(data, header.RAMBankCount)
	default:
		return nil, fmt.Errorf("cartridge: unsupported MBC type %s", header.Type)
	}

	return &Cartridge{Header: header, mbc: m}, nil
}

// NewBlank returns a cartridge-less stand-in: reads return 0xFF, writes are
// ignored. Useful for booting the core with only a boot ROM for debugging.
func NewBlank() *Cartridge {
	return &Cartridge{
		Header: Header{Title: "(no cartridge)", Type: ROMOnly},
		mbc:    newROMOnly(nil),
	}
}

func (c *Cartridge) Read(address uint16) uint8        { return c.mbc.Read(address) }
func (c *Cartridge) Write(address uint16, value uint8) { c.mbc.Write(address, value) }
func (c *Cartridge) RAMDirty() bool                    { return c.mbc.Dirty() }
func (c *Cartridge) ClearRAMDirty()                    { c.mbc.ClearDirty() }

// RAM exposes the battery-backed external RAM, for save/restore. Returns
// nil when the cartridge has no external RAM.
func (c *Cartridge) RAM() []byte { return c.mbc.RAM() }

// LoadRAM restores previously-flushed battery RAM, e.g. on boot.
func (c *Cartridge) LoadRAM(data []byte) {
	dst := c.mbc.RAM()
	copy(dst, data)
}

// Snapshot is the cartridge's resumable state (bank registers and external
// RAM contents), for save states. The ROM image itself is not included -
// it's loaded once, immutable, and reattached on restore.
type Snapshot struct {
	Banks BankSnapshot
	RAM   []byte
}

// Snapshot captures the cartridge's resumable state.
func (c *Cartridge) Snapshot() Snapshot {
	ram := c.mbc.RAM()
	cp := make([]byte, len(ram))
	copy(cp, ram)
	return Snapshot{Banks: c.mbc.BankState(), RAM: cp}
}

// Restore replaces the cartridge's bank registers and RAM contents with a
// previously captured Snapshot. The cartridge must already be loaded with
// the same ROM image.
func (c *Cartridge) Restore(s Snapshot) {
	c.mbc.RestoreBankState(s.Banks)
	copy(c.mbc.RAM(), s.RAM)
}
