package cartridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchwillow/dmgo/addr"
)

// newMBC1Image builds a minimal 4-bank (64KB) MBC1 ROM image with a
// battery and 1 RAM bank, each bank's first byte set to its own index so
// bank switches are observable.
func newMBC1Image(banks int) []byte {
	data := make([]byte, banks*romBankSize)
	for i := 0; i < banks; i++ {
		data[i*romBankSize] = byte(i)
	}
	data[0x147] = 0x03 // MBC1+RAM+BATTERY
	data[0x148] = 0x01 // 4 banks
	data[0x149] = 0x02 // 1 RAM bank
	copy(data[0x134:0x134+16], []byte("TESTROM"))
	return data
}

func TestParseHeaderDecodesMBC1WithBattery(t *testing.T) {
	data := newMBC1Image(4)
	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, MBC1Type, h.Type)
	assert.True(t, h.HasBattery)
	assert.Equal(t, 4, h.ROMBankCount)
	assert.Equal(t, 1, h.RAMBankCount)
	assert.Equal(t, "TESTROM", h.Title)
}

func TestParseHeaderRejectsTooSmallImage(t *testing.T) {
	_, err := ParseHeader(make([]byte, 16))
	assert.Error(t, err)
}

func TestMBC1BankSwitchChangesHighWindow(t *testing.T) {
	data := newMBC1Image(4)
	cart, err := New(data)
	require.NoError(t, err)

	// Bank register defaults to 1.
	assert.Equal(t, byte(1), cart.Read(addr.ROMBankNStart))

	cart.Write(0x2000, 0x03) // select bank 3
	assert.Equal(t, byte(3), cart.Read(addr.ROMBankNStart))

	cart.Write(0x2000, 0x00) // bank 0 is remapped to bank 1
	assert.Equal(t, byte(1), cart.Read(addr.ROMBankNStart))
}

func TestMBC1RAMRequiresEnableLatch(t *testing.T) {
	data := newMBC1Image(4)
	cart, err := New(data)
	require.NoError(t, err)

	cart.Write(addr.ExtRAMStart, 0x42)
	assert.Equal(t, byte(0xFF), cart.Read(addr.ExtRAMStart), "RAM writes before enabling must be ignored")
	assert.False(t, cart.RAMDirty())

	cart.Write(0x0000, 0x0A) // enable RAM
	cart.Write(addr.ExtRAMStart, 0x42)
	assert.Equal(t, byte(0x42), cart.Read(addr.ExtRAMStart))
	assert.True(t, cart.RAMDirty())

	cart.ClearRAMDirty()
	assert.False(t, cart.RAMDirty())
}

func TestCartridgeSnapshotRoundTrip(t *testing.T) {
	data := newMBC1Image(4)
	cart, err := New(data)
	require.NoError(t, err)

	cart.Write(0x0000, 0x0A)
	cart.Write(0x2000, 0x03)
	cart.Write(addr.ExtRAMStart, 0x77)

	snap := cart.Snapshot()

	fresh, err := New(data)
	require.NoError(t, err)
	fresh.Restore(snap)

	assert.Equal(t, byte(3), fresh.Read(addr.ROMBankNStart))
	assert.Equal(t, byte(0x77), fresh.Read(addr.ExtRAMStart))
}
