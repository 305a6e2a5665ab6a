// Package headless implements a backend with no window and no third-party
// dependencies, grounded on valerio-go-jeebie/jeebie/backend/headless: a
// bare target for test-ROM harnesses that only need blit_screen and
// on_audio_generated callbacks.
package headless

import (
	"github.com/finchwillow/dmgo/joypad"
	"github.com/finchwillow/dmgo/video"
)

// Backend buffers the most recent frame and every sample queued, for the
// caller to inspect directly instead of driving a real display.
type Backend struct {
	staged    *video.FrameBuffer
	lastFrame *video.FrameBuffer
	samples   []int16
	closed    bool

	// Input is the state PollInput returns every call; set it directly to
	// script a test ROM's button presses.
	Input      joypad.State
	QuitSignal bool
}

// New returns a Backend with no frame presented yet.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) PollInput() (joypad.State, bool) {
	return b.Input, b.QuitSignal
}

func (b *Backend) BlitFrame(frame *video.FrameBuffer) {
	b.staged = frame
}

func (b *Backend) QueueSamples(samples []int16) {
	b.samples = append(b.samples, samples...)
}

func (b *Backend) Present() error {
	b.lastFrame = b.staged
	return nil
}

// LastFrame returns the most recently presented frame, or nil if none has
// been presented yet.
func (b *Backend) LastFrame() *video.FrameBuffer { return b.lastFrame }

// DrainSamples returns and clears every sample queued since the last call.
func (b *Backend) DrainSamples() []int16 {
	out := b.samples
	b.samples = nil
	return out
}

func (b *Backend) Close() error {
	b.closed = true
	return nil
}
