package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finchwillow/dmgo/addr"
	"github.com/finchwillow/dmgo/bit"
)

func newEnabledPPU() *PPU {
	p := New()
	p.WriteRegister(addr.LCDC, 0x80) // display on, everything else off
	return p
}

func TestModeCyclesThroughOAMVRAMHBlankPerLine(t *testing.T) {
	p := newEnabledPPU()
	assert.Equal(t, ModeOAM, p.mode)

	for i := 0; i < oamCycles/4; i++ {
		p.Tick()
	}
	assert.Equal(t, ModeVRAM, p.mode)

	for i := 0; i < (vramBase+p.penalty)/4; i++ {
		p.Tick()
	}
	assert.Equal(t, ModeHBlank, p.mode)
}

func TestEnteringVBlankAtLine144RequestsInterrupt(t *testing.T) {
	p := newEnabledPPU()
	var got addr.Interrupt
	p.RequestInterrupt = func(i addr.Interrupt) { got |= i }

	// Drive the PPU through 144 full lines (OAM+VRAM+HBlank) so LY reaches
	// visibleLines and the mode machine crosses into VBlank.
	for line := 0; line < visibleLines; line++ {
		for i := 0; i < lineCycles/4; i++ {
			p.Tick()
		}
	}
	assert.Equal(t, ModeVBlank, p.mode)
	assert.Equal(t, uint8(visibleLines), p.ly)
	assert.NotZero(t, got&addr.VBlank)
}

func TestScanForScanlineCapsAtTenSprites(t *testing.T) {
	p := New()
	// 12 sprites all visible on line 10, Y=26 (26-16=10).
	for i := 0; i < 12; i++ {
		base := i * 4
		p.oam[base] = 26
		p.oam[base+1] = uint8(8 + i)
		p.oam[base+2] = 0
		p.oam[base+3] = 0
	}
	sprites := p.scanForScanline(10, 8)
	assert.Len(t, sprites, 10, "OAM search must cap at 10 sprites per scanline")
	assert.Equal(t, 0, sprites[0].OAMIndex, "search proceeds in OAM index order")
}

func TestScanForScanlineIgnoresSpritesOffLine(t *testing.T) {
	p := New()
	p.oam[0], p.oam[1] = 100, 20 // Y=84, far from line 10
	sprites := p.scanForScanline(10, 8)
	assert.Empty(t, sprites)
}

func TestRenderOrderTieBreaksOnLowerOAMIndex(t *testing.T) {
	sprites := []Sprite{
		{X: 5, OAMIndex: 2},
		{X: 5, OAMIndex: 0},
		{X: 5, OAMIndex: 1},
		{X: 9, OAMIndex: 3},
	}
	ordered := renderOrder(sprites)

	// Drawn back-to-front: highest X first, then within a tie the highest
	// OAM index first, so index 0 paints last and wins the tie.
	assert.Equal(t, []int{3, 2, 1, 0}, []int{
		ordered[0].OAMIndex, ordered[1].OAMIndex, ordered[2].OAMIndex, ordered[3].OAMIndex,
	})
}

func TestLYCFlagSetOnMatch(t *testing.T) {
	p := newEnabledPPU()
	p.WriteRegister(addr.LYC, 0)
	assert.True(t, bit.IsSet(addr.StatLYCFlag, p.ReadRegister(addr.STAT)))
}
