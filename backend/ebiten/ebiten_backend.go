// Package ebiten implements a backend over hajimehoshi/ebiten/v2, grounded
// on FabianRolfMatthiasNoll-GameBoyEmulator/internal/ui/ebitenapp.go and
// RNG999-gones/internal/graphics/ebitengine_backend.go: an ebiten.Game that
// draws the framebuffer scaled into an ebiten.Image and polls
// ebiten.IsKeyPressed for the joypad.
package ebiten

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/finchwillow/dmgo/joypad"
	"github.com/finchwillow/dmgo/video"
)

const (
	sampleRate = 48000
	scale      = 4
)

// Backend implements backend.Backend as an ebiten.Game. The host drives it
// by calling ebiten.RunGame(backend) instead of a manual present loop;
// BlitFrame/QueueSamples/PollInput still work as the rest of the interface
// expects, fed from Machine on each Update.
type Backend struct {
	tex    *ebiten.Image
	pixels []byte

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	pcmBuffer   []byte

	state joypad.State
	quit  bool
}

// New returns a Backend with its offscreen texture and audio context ready.
func New(title string) (*Backend, error) {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(video.ScreenWidth*scale, video.ScreenHeight*scale)

	b := &Backend{
		tex:    ebiten.NewImage(video.ScreenWidth, video.ScreenHeight),
		pixels: make([]byte, video.FramebufferSize*4),
	}

	b.audioCtx = audio.NewContext(sampleRate)
	player, err := b.audioCtx.NewPlayer(&streamingPCM{b: b})
	if err != nil {
		return nil, fmt.Errorf("ebiten: create audio player: %w", err)
	}
	b.audioPlayer = player
	b.audioPlayer.Play()

	return b, nil
}

func (b *Backend) PollInput() (joypad.State, bool) {
	b.state = joypad.State{
		Up:     ebiten.IsKeyPressed(ebiten.KeyUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyDown),
		Left:   ebiten.IsKeyPressed(ebiten.KeyLeft),
		Right:  ebiten.IsKeyPressed(ebiten.KeyRight),
		A:      ebiten.IsKeyPressed(ebiten.KeyZ),
		B:      ebiten.IsKeyPressed(ebiten.KeyX),
		Start:  ebiten.IsKeyPressed(ebiten.KeyEnter),
		Select: ebiten.IsKeyPressed(ebiten.KeyShiftRight),
	}
	return b.state, b.quit
}

func (b *Backend) BlitFrame(frame *video.FrameBuffer) {
	for i, px := range frame.Pixels() {
		b.pixels[i*4+0] = byte(px >> 16) // R
		b.pixels[i*4+1] = byte(px >> 8)  // G
		b.pixels[i*4+2] = byte(px)       // B
		b.pixels[i*4+3] = byte(px >> 24) // A
	}
	b.tex.WritePixels(b.pixels)
}

// QueueSamples appends interleaved stereo PCM for the streaming player to
// drain; little-endian S16 as ebiten/audio expects.
func (b *Backend) QueueSamples(samples []int16) {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	b.pcmBuffer = append(b.pcmBuffer, buf...)
}

func (b *Backend) Present() error { return nil }

func (b *Backend) Close() error {
	return b.audioPlayer.Close()
}

// Update implements ebiten.Game; the host's per-frame CPU stepping happens
// outside this call, wired in by whatever drives ebiten.RunGame.
func (b *Backend) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		b.quit = true
	}
	return nil
}

// Draw implements ebiten.Game.
func (b *Backend) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	screen.DrawImage(b.tex, op)
}

// Layout implements ebiten.Game.
func (b *Backend) Layout(outsideWidth, outsideHeight int) (int, int) {
	return video.ScreenWidth * scale, video.ScreenHeight * scale
}

// streamingPCM adapts Backend's queued samples to io.Reader for
// audio.Context.NewPlayer, pulling from pcmBuffer as ebiten drains it.
type streamingPCM struct {
	b *Backend
}

func (s *streamingPCM) Read(p []byte) (int, error) {
	n := copy(p, s.b.pcmBuffer)
	s.b.pcmBuffer = s.b.pcmBuffer[n:]
	if n < len(p) {
		// underrun: pad with silence rather than block the audio thread
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		n = len(p)
	}
	return n, nil
}
