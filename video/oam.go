package video

import "sort"

// Sprite is one OAM entry as seen by the renderer, with its attribute byte
// already decoded.
type Sprite struct {
	Y, X      int
	TileIndex uint8
	OAMIndex  int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool
}

func decodeSprite(index int, raw [4]uint8) Sprite {
	flags := raw[3]
	return Sprite{
		Y:           int(raw[0]) - 16,
		X:           int(raw[1]) - 8,
		TileIndex:   raw[2],
		OAMIndex:    index,
		PaletteOBP1: flags&(1<<4) != 0,
		FlipX:       flags&(1<<5) != 0,
		FlipY:       flags&(1<<6) != 0,
		BehindBG:    flags&(1<<7) != 0,
	}
}

// scanForScanline walks all 40 OAM entries in index order and keeps the
// first 10 whose Y range covers the given line, per the hardware OAM-search
// limit. Only Y participates in selection; X-offscreen sprites still count
// against the cap.
func (p *PPU) scanForScanline(line, height int) []Sprite {
	found := p.spriteScratch[:0]
	for i := 0; i < 40; i++ {
		base := i * 4
		raw := [4]uint8{p.oam[base], p.oam[base+1], p.oam[base+2], p.oam[base+3]}
		y := int(raw[0]) - 16
		if y > line || y+height <= line {
			continue
		}
		found = append(found, decodeSprite(i, raw))
		if len(found) >= 10 {
			break
		}
	}
	p.spriteScratch = found
	return found
}

// renderOrder sorts sprites for rendering low-priority-first (so
// high-priority sprites paint last and win ties): smaller X wins, OAM index
// breaks ties. Among equal X the higher OAM index comes first, so the
// lower index paints last.
func renderOrder(sprites []Sprite) []Sprite {
	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X > ordered[j].X
		}
		return ordered[i].OAMIndex > ordered[j].OAMIndex
	})
	return ordered
}
