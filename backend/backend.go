// Package backend defines the host-facing presentation/input/audio surface
// every frontend implements, and is the home for this repo's four concrete
// implementations (sdl2, ebiten, terminal, headless) - the out-of-scope
// "supplied as callbacks" boundary from the core spec, made concrete.
package backend

import (
	"github.com/finchwillow/dmgo/joypad"
	"github.com/finchwillow/dmgo/video"
)

// Backend is a complete host platform: rendering, input polling and audio
// output. Callers drive it once per emulated frame.
type Backend interface {
	// PollInput reads the current host input state and reports whether the
	// host has asked to quit (window close, Ctrl-C, etc).
	PollInput() (joypad.State, bool)

	// BlitFrame stages a completed frame for display; Present flips it to
	// the screen. Split so a backend can defer expensive work to Present.
	BlitFrame(frame *video.FrameBuffer)

	// QueueSamples hands off interleaved stereo PCM for playback.
	QueueSamples(samples []int16)

	// Present flushes the staged frame to the display.
	Present() error

	// Close releases any host resources (window, audio device, screen).
	Close() error
}

// Config groups common backend options. No backend constructor takes it:
// sdl2.New and ebiten.New take only a title, terminal.New and headless.New
// take no arguments.
type Config struct {
	Title      string
	Scale      int
	VSync      bool
	Fullscreen bool
}
