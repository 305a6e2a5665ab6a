// Package terminal implements a backend for headless-but-visible debugging
// over SSH, grounded on valerio-go-jeebie/jeebie/backend/terminal: it
// downsamples the framebuffer into half-block characters over tcell and
// reads keypresses as joypad input. Audio is silently dropped - there is no
// host device to play it through.
package terminal

import (
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/finchwillow/dmgo/joypad"
	"github.com/finchwillow/dmgo/video"
)

// keyBinding maps a tcell key/rune to the joypad button it drives.
type keyBinding struct {
	key  tcell.Key
	rune rune
}

var bindings = map[keyBinding]joypad.Button{
	{key: tcell.KeyUp}:        joypad.Up,
	{key: tcell.KeyDown}:      joypad.Down,
	{key: tcell.KeyLeft}:      joypad.Left,
	{key: tcell.KeyRight}:     joypad.Right,
	{key: tcell.KeyRune, rune: 'z'}: joypad.A,
	{key: tcell.KeyRune, rune: 'x'}: joypad.B,
	{key: tcell.KeyEnter}:     joypad.Start,
	{key: tcell.KeyTab}:       joypad.Select,
}

// Backend implements backend.Backend using tcell for terminal rendering.
type Backend struct {
	screen tcell.Screen
	state  joypad.State
	quit   bool
	frame  *video.FrameBuffer
}

// New opens a tcell screen and returns a ready Backend.
func New() (*Backend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("terminal: create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("terminal: init screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	slog.Info("terminal backend initialized")
	return &Backend{screen: screen}, nil
}

func (b *Backend) PollInput() (joypad.State, bool) {
	for b.screen.HasPendingEvent() {
		switch ev := b.screen.PollEvent().(type) {
		case *tcell.EventKey:
			b.handleKey(ev)
		case *tcell.EventResize:
			b.screen.Sync()
		}
	}
	return b.state, b.quit
}

func (b *Backend) handleKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
		b.quit = true
		return
	}
	bnd := keyBinding{key: ev.Key()}
	if ev.Key() == tcell.KeyRune {
		bnd.rune = ev.Rune()
	}
	btn, ok := bindings[bnd]
	if !ok {
		return
	}
	// tcell has no key-up events for raw terminals; treat every press as a
	// momentary tap, cleared when the next frame is presented.
	switch btn {
	case joypad.Up:
		b.state.Up = true
	case joypad.Down:
		b.state.Down = true
	case joypad.Left:
		b.state.Left = true
	case joypad.Right:
		b.state.Right = true
	case joypad.A:
		b.state.A = true
	case joypad.B:
		b.state.B = true
	case joypad.Start:
		b.state.Start = true
	case joypad.Select:
		b.state.Select = true
	}
}

func (b *Backend) BlitFrame(frame *video.FrameBuffer) {
	b.frame = frame
}

// QueueSamples is a no-op: the terminal backend has no audio device.
func (b *Backend) QueueSamples(samples []int16) {}

func (b *Backend) Present() error {
	if b.frame == nil {
		return nil
	}
	b.render(b.frame)
	b.screen.Show()
	b.state = joypad.State{}
	return nil
}

func (b *Backend) render(frame *video.FrameBuffer) {
	pixels := frame.Pixels()
	for y := 0; y < video.ScreenHeight; y += 2 {
		for x := 0; x < video.ScreenWidth; x++ {
			top := pixels[y*video.ScreenWidth+x]
			bottom := top
			if y+1 < video.ScreenHeight {
				bottom = pixels[(y+1)*video.ScreenWidth+x]
			}
			style := tcell.StyleDefault.
				Foreground(shadeToColor(top)).
				Background(shadeToColor(bottom))
			b.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}

func shadeToColor(argb uint32) tcell.Color {
	r := uint8(argb >> 16)
	g := uint8(argb >> 8)
	bl := uint8(argb)
	return tcell.NewRGBColor(int32(r), int32(g), int32(bl))
}

func (b *Backend) Close() error {
	b.screen.Fini()
	return nil
}
