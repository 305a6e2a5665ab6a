// Package video implements the PPU: the four-mode scanline state machine,
// background/window/sprite compositing, OAM DMA, and the single STAT
// interrupt wire.
package video

import (
	"github.com/finchwillow/dmgo/addr"
	"github.com/finchwillow/dmgo/bit"
)

// Mode is the PPU's current rendering stage; values match STAT bits 1-0.
type Mode uint8

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOAM    Mode = 2
	ModeVRAM   Mode = 3
)

const (
	oamCycles    = 80
	vramBase     = 172
	hblankBase   = 204
	lineCycles   = 456
	visibleLines = 144
	totalLines   = 154
)

// PPU owns video RAM, OAM, the LCD registers and the mode machine. It is
// ticked once per m-cycle (4 t-cycles) by the bus, in lockstep with the
// timer and APU.
type PPU struct {
	vram [0x2000]byte
	oam  [0xA0]byte

	lcdc, stat, scy, scx, ly, lyc, bgp, obp0, obp1, wy, wx uint8

	mode       Mode
	tcycles    int // elapsed t-cycles within the current mode
	windowLine int // internal window-line counter, resets on frame start
	penalty    int // this scanline's mode-3 penalty, computed at OAM->VRAM transition

	statLine bool // previous combined STAT interrupt line, for edge detection

	bgIndex [ScreenWidth]uint8 // this scanline's background color index, for sprite priority
	fb      *FrameBuffer
	scratch *FrameBuffer

	spriteScratch []Sprite

	dma dmaState

	RequestInterrupt func(addr.Interrupt)
	// DMASourceRead reads one byte from the full address space (ROM/WRAM/etc),
	// used as the OAM DMA source when the transfer isn't copying from VRAM.
	DMASourceRead func(uint16) byte
	// FrameReady is invoked once per completed frame with the finished buffer.
	FrameReady func(*FrameBuffer)
}

type dmaState struct {
	active bool
	source uint16
	step   int // 0..161: 0-1 are the startup wait, 2-161 copy byte step-2
}

// New returns a PPU powered on in the post-boot-ROM VBlank state.
func New() *PPU {
	return &PPU{
		mode:    ModeVBlank,
		ly:      0,
		fb:      NewFrameBuffer(),
		scratch: NewFrameBuffer(),
	}
}

// FrameBuffer returns the most recently completed frame.
func (p *PPU) FrameBuffer() *FrameBuffer { return p.fb }

// Tick advances the PPU by one m-cycle (4 t-cycles): the mode machine, the
// OAM DMA copy, and STAT edge detection all step together.
func (p *PPU) Tick() {
	p.tickDMA()

	if !bit.IsSet(7, p.lcdc) {
		return
	}

	p.tcycles += 4
	switch p.mode {
	case ModeOAM:
		if p.tcycles >= oamCycles {
			p.tcycles -= oamCycles
			p.enterVRAM()
		}
	case ModeVRAM:
		if p.tcycles >= vramBase+p.penalty {
			p.tcycles -= vramBase + p.penalty
			p.renderScanline()
			p.enterHBlank()
		}
	case ModeHBlank:
		if p.tcycles >= hblankBase-p.penalty {
			p.tcycles -= hblankBase - p.penalty
			p.advanceLine()
		}
	case ModeVBlank:
		if p.tcycles >= lineCycles {
			p.tcycles -= lineCycles
			p.advanceLine()
		}
	}

	p.checkStatLine()
}

func (p *PPU) enterVRAM() {
	p.mode = ModeVRAM
	p.penalty = p.computeMode3Penalty()
}

func (p *PPU) enterHBlank() {
	p.mode = ModeHBlank
}

func (p *PPU) advanceLine() {
	if p.mode == ModeVBlank {
		p.setLY(int(p.ly) + 1)
		if int(p.ly) >= totalLines {
			p.setLY(0)
			p.windowLine = 0
			p.enterOAM()
		}
		return
	}

	// end of HBlank: move to the next line
	p.setLY(int(p.ly) + 1)
	if int(p.ly) == visibleLines {
		p.mode = ModeVBlank
		if p.FrameReady != nil {
			p.FrameReady(p.fb)
		}
		p.requestInterrupt(addr.VBlank)
		return
	}
	p.enterOAM()
}

func (p *PPU) enterOAM() {
	p.mode = ModeOAM
}

func (p *PPU) setLY(line int) {
	p.ly = uint8(line)
	p.recomputeLYC()
}

func (p *PPU) recomputeLYC() {
	if p.ly == p.lyc {
		p.stat = bit.Set(addr.StatLYCFlag, p.stat)
	} else {
		p.stat = bit.Reset(addr.StatLYCFlag, p.stat)
	}
}

// statLineValue computes the single OR'd STAT interrupt wire, per the
// spec's "one virtual wire fed by four sources, edge-sensitive" model.
func (p *PPU) statLineValue() bool {
	if bit.IsSet(addr.StatLYCFlag, p.stat) && bit.IsSet(addr.StatLYCInterrupt, p.stat) {
		return true
	}
	switch p.mode {
	case ModeOAM:
		return bit.IsSet(addr.StatOAMInterrupt, p.stat)
	case ModeVBlank:
		// VBlank also ORs in the OAM source on real hardware for one line,
		// but most test ROMs only depend on the VBlank bit; keep it simple
		// and spec-literal.
		return bit.IsSet(addr.StatVBlankInterrupt, p.stat)
	case ModeHBlank:
		return bit.IsSet(addr.StatHBlankInterrupt, p.stat)
	default:
		return false
	}
}

func (p *PPU) checkStatLine() {
	line := p.statLineValue()
	if line && !p.statLine {
		p.requestInterrupt(addr.LCDStat)
	}
	p.statLine = line
}

func (p *PPU) requestInterrupt(i addr.Interrupt) {
	if p.RequestInterrupt != nil {
		p.RequestInterrupt(i)
	}
}

// computeMode3Penalty derives this scanline's Mode-3 extension from SCX fine
// scroll, a one-time window-activation cost, and the per-sprite fetch
// penalty of the (up to 10) sprites visible on this line. The total line
// length stays 456 t-cycles: whatever is added here is subtracted from
// HBlank.
func (p *PPU) computeMode3Penalty() int {
	penalty := int(p.scx) % 8

	if p.windowVisibleThisLine() {
		penalty += 6
	}

	height := 8
	if bit.IsSet(2, p.lcdc) {
		height = 16
	}
	if bit.IsSet(1, p.lcdc) {
		sprites := p.scanForScanline(int(p.ly), height)
		for _, s := range sprites {
			phase := (s.X + int(p.scx)) % 8
			if phase < 0 {
				phase += 8
			}
			cost := 5 - phase
			if cost < 0 {
				cost = 0
			}
			cost = ((cost + 3) / 4) * 4
			penalty += cost
		}
	}

	return penalty
}

func (p *PPU) windowVisibleThisLine() bool {
	if !bit.IsSet(5, p.lcdc) {
		return false
	}
	return p.wy <= p.ly && p.wx <= 166
}

// Registers

func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return p.stat | 0x80
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.DMA:
		return uint8(p.dma.source >> 8)
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	default:
		return 0xFF
	}
}

func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		wasOn := bit.IsSet(7, p.lcdc)
		p.lcdc = value
		if wasOn && !bit.IsSet(7, p.lcdc) {
			p.turnOff()
		} else if !wasOn && bit.IsSet(7, p.lcdc) {
			p.turnOn()
		}
	case addr.STAT:
		p.stat = (p.stat & 0x07) | (value & 0x78)
		p.checkStatLine()
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LYC:
		p.lyc = value
		p.recomputeLYC()
		p.checkStatLine()
	case addr.DMA:
		p.startDMA(value)
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}

func (p *PPU) turnOff() {
	p.mode = ModeHBlank
	p.ly = 0
	p.tcycles = 0
	p.windowLine = 0
	p.stat &^= 0x03
}

func (p *PPU) turnOn() {
	p.mode = ModeOAM
	p.tcycles = 0
}

// VRAM / OAM access, with CPU blocking rules.

func (p *PPU) VRAMBlocked() bool {
	return bit.IsSet(7, p.lcdc) && p.mode == ModeVRAM
}

func (p *PPU) OAMBlocked() bool {
	if !bit.IsSet(7, p.lcdc) {
		return false
	}
	if p.dma.active && p.dma.step >= 2 {
		return true
	}
	return p.mode == ModeOAM || p.mode == ModeVRAM
}

func (p *PPU) ReadVRAM(address uint16) uint8 {
	if p.VRAMBlocked() {
		return 0xFF
	}
	return p.vram[address-addr.VRAMStart]
}

func (p *PPU) WriteVRAM(address uint16, value uint8) {
	if p.VRAMBlocked() {
		return
	}
	p.vram[address-addr.VRAMStart] = value
}

func (p *PPU) ReadOAM(address uint16) uint8 {
	if p.OAMBlocked() {
		return 0xFF
	}
	return p.oam[address-addr.OAMStart]
}

func (p *PPU) WriteOAM(address uint16, value uint8) {
	if p.OAMBlocked() {
		return
	}
	p.oam[address-addr.OAMStart] = value
}

// rawVRAM/rawOAM bypass the CPU-blocking rules, for internal rendering and
// DMA, where the PPU itself is the reader/writer.
func (p *PPU) rawVRAM(offset uint16) uint8   { return p.vram[offset] }
func (p *PPU) rawOAMByte(offset int) uint8   { return p.oam[offset] }

// OAM DMA

func (p *PPU) startDMA(page uint8) {
	source := uint16(page) << 8
	if source >= addr.EchoStart && source <= addr.OAMEnd {
		source -= 0x2000
	}
	p.dma = dmaState{active: true, source: source, step: 0}
}

func (p *PPU) tickDMA() {
	if !p.dma.active {
		return
	}
	if p.dma.step < 2 {
		p.dma.step++
		return
	}

	idx := p.dma.step - 2
	var b uint8
	srcAddr := p.dma.source + uint16(idx)
	if srcAddr >= addr.VRAMStart && srcAddr <= addr.VRAMEnd {
		b = p.rawVRAM(srcAddr - addr.VRAMStart)
	} else if p.DMASourceRead != nil {
		b = p.DMASourceRead(srcAddr)
	}
	p.oam[idx] = b

	p.dma.step++
	if p.dma.step >= 162 {
		p.dma.active = false
	}
}

// renderScanline composites background, window and sprites for the current
// line into the frame buffer.
func (p *PPU) renderScanline() {
	if !bit.IsSet(0, p.lcdc) {
		for x := 0; x < ScreenWidth; x++ {
			p.fb.Set(x, int(p.ly), ApplyPalette(0, p.bgp))
			p.bgIndex[x] = 0
		}
	} else {
		p.renderBackground()
	}

	if bit.IsSet(5, p.lcdc) && p.windowVisibleThisLine() {
		p.renderWindow()
	}

	if bit.IsSet(1, p.lcdc) {
		p.renderSprites()
	}
}

func (p *PPU) renderBackground() {
	unsigned := bit.IsSet(4, p.lcdc)
	mapBase := addr.TileMap0 - addr.VRAMStart
	if bit.IsSet(3, p.lcdc) {
		mapBase = addr.TileMap1 - addr.VRAMStart
	}

	y := (int(p.ly) + int(p.scy)) & 0xFF
	tileRow := (y / 8) * 32
	rowOffset := (y % 8) * 2

	line := int(p.ly)
	for x := 0; x < ScreenWidth; x++ {
		mapX := (x + int(p.scx)) & 0xFF
		tileCol := mapX / 8
		tileIndex := p.rawVRAM(mapBase + uint16(tileRow+tileCol))

		tileAddr := bgTileDataAddr(tileIndex, unsigned, rowOffset)
		low := p.rawVRAM(tileAddr)
		high := p.rawVRAM(tileAddr + 1)

		color := tilePixel(low, high, mapX%8)
		p.bgIndex[x] = color
		p.fb.Set(x, line, ApplyPalette(color, p.bgp))
	}
}

func (p *PPU) renderWindow() {
	unsigned := bit.IsSet(4, p.lcdc)
	mapBase := addr.TileMap0 - addr.VRAMStart
	if bit.IsSet(6, p.lcdc) {
		mapBase = addr.TileMap1 - addr.VRAMStart
	}

	wx := int(p.wx) - 7
	tileRow := (p.windowLine / 8) * 32
	rowOffset := (p.windowLine % 8) * 2
	line := int(p.ly)

	for x := 0; x < ScreenWidth; x++ {
		screenX := wx + x
		if screenX < 0 || screenX >= ScreenWidth {
			continue
		}
		tileCol := x / 8
		tileIndex := p.rawVRAM(mapBase + uint16(tileRow+tileCol))

		tileAddr := bgTileDataAddr(tileIndex, unsigned, rowOffset)
		low := p.rawVRAM(tileAddr)
		high := p.rawVRAM(tileAddr + 1)

		color := tilePixel(low, high, x%8)
		p.bgIndex[screenX] = color
		p.fb.Set(screenX, line, ApplyPalette(color, p.bgp))
	}
	p.windowLine++
}

func (p *PPU) renderSprites() {
	height := 8
	if bit.IsSet(2, p.lcdc) {
		height = 16
	}

	sprites := p.scanForScanline(int(p.ly), height)
	ordered := renderOrder(sprites)
	line := int(p.ly)

	for _, s := range ordered {
		palette := p.obp0
		if s.PaletteOBP1 {
			palette = p.obp1
		}

		rowInSprite := line - s.Y
		if s.FlipY {
			rowInSprite = height - 1 - rowInSprite
		}

		tileIndex := s.TileIndex
		rowOffset := rowInSprite * 2
		if height == 16 {
			tileIndex &^= 0x01
			if rowInSprite >= 8 {
				rowOffset = (rowInSprite - 8) * 2
				tileIndex |= 0x01
			}
		}

		tileAddr := objTileDataAddr(tileIndex, rowOffset)
		low := p.rawVRAM(tileAddr)
		high := p.rawVRAM(tileAddr + 1)

		for px := 0; px < 8; px++ {
			screenX := s.X + px
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			pixelIdx := px
			if s.FlipX {
				pixelIdx = 7 - px
			}
			color := tilePixel(low, high, pixelIdx)
			if color == 0 {
				continue
			}
			if s.BehindBG && p.bgIndex[screenX] != 0 {
				continue
			}
			p.fb.Set(screenX, line, ApplyPalette(color, palette))
		}
	}
}

// Snapshot is the PPU's resumable state (VRAM, OAM, registers, mode
// machine and in-flight DMA), for save states. The framebuffer itself is
// not included: the next scanline redraws it within one frame.
type Snapshot struct {
	VRAM [0x2000]byte
	OAM  [0xA0]byte

	LCDC, STAT, SCY, SCX, LY, LYC, BGP, OBP0, OBP1, WY, WX uint8

	Mode       uint8
	TCycles    int
	WindowLine int
	Penalty    int
	StatLine   bool

	DMAActive bool
	DMASource uint16
	DMAStep   int
}

// Snapshot captures the PPU's resumable state.
func (p *PPU) Snapshot() Snapshot {
	return Snapshot{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc, BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		Mode: uint8(p.mode), TCycles: p.tcycles, WindowLine: p.windowLine,
		Penalty: p.penalty, StatLine: p.statLine,
		DMAActive: p.dma.active, DMASource: p.dma.source, DMAStep: p.dma.step,
	}
}

// Restore replaces the PPU's state with a previously captured Snapshot.
// Callbacks (RequestInterrupt, DMASourceRead, FrameReady) are left untouched.
func (p *PPU) Restore(s Snapshot) {
	p.vram = s.VRAM
	p.oam = s.OAM
	p.lcdc, p.stat, p.scy, p.scx = s.LCDC, s.STAT, s.SCY, s.SCX
	p.ly, p.lyc, p.bgp, p.obp0, p.obp1 = s.LY, s.LYC, s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.mode = Mode(s.Mode)
	p.tcycles, p.windowLine, p.penalty, p.statLine = s.TCycles, s.WindowLine, s.Penalty, s.StatLine
	p.dma = dmaState{active: s.DMAActive, source: s.DMASource, step: s.DMAStep}
}

// Reset restores power-on state.
func (p *PPU) Reset() {
	*p = PPU{
		mode:             ModeVBlank,
		fb:               p.fb,
		scratch:          p.scratch,
		RequestInterrupt: p.RequestInterrupt,
		DMASourceRead:    p.DMASourceRead,
		FrameReady:       p.FrameReady,
	}
}
