package video

const (
	ScreenWidth  = 160
	ScreenHeight = 144
	// FramebufferSize is the pixel count of one frame.
	FramebufferSize = ScreenWidth * ScreenHeight
)

// FrameBuffer holds one completed frame as top-left-origin ARGB8888 pixels,
// matching the host's blit_screen contract.
type FrameBuffer struct {
	pixels [FramebufferSize]uint32
}

// NewFrameBuffer returns a frame buffer cleared to white.
func NewFrameBuffer() *FrameBuffer {
	fb := &FrameBuffer{}
	for i := range fb.pixels {
		fb.pixels[i] = dmgPalette[0]
	}
	return fb
}

func (f *FrameBuffer) Set(x, y int, argb uint32) {
	f.pixels[y*ScreenWidth+x] = argb
}

// Pixels returns the raw ARGB8888 pixel slice, ready for blit_screen.
func (f *FrameBuffer) Pixels() []uint32 { return f.pixels[:] }

// dmgPalette is a four-shade grey palette (white to black), ARGB8888,
// indexed by 2-bit color index after BGP/OBPn translation.
var dmgPalette = [4]uint32{
	0xFFFFFFFF,
	0xFFAAAAAA,
	0xFF555555,
	0xFF000000,
}

// ApplyPalette maps a raw 2-bit color index through an 8-bit palette
// register (BGP/OBP0/OBP1, 2 bits per color index) to an ARGB8888 pixel.
func ApplyPalette(colorIndex, paletteRegister uint8) uint32 {
	shade := (paletteRegister >> (colorIndex * 2)) & 0x03
	return dmgPalette[shade]
}
