// Package sdl2 implements a backend over SDL2 bindings, grounded on
// valerio-go-jeebie/jeebie/backend/sdl2: a window, an accelerated texture
// blit of the 160x144 framebuffer, and a queued audio device.
package sdl2

import (
	"fmt"
	"log/slog"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/finchwillow/dmgo/joypad"
	"github.com/finchwillow/dmgo/video"
)

const (
	pixelScale  = 4
	sampleRate  = 48000
)

// Backend implements backend.Backend over an SDL2 window + renderer +
// streaming texture + queued audio device.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	audioDevice sdl.AudioDeviceID
	pixelBuffer []byte

	state joypad.State
	quit  bool
}

// New opens an SDL2 window sized to video.ScreenWidth/Height * pixelScale,
// with a streaming texture for the framebuffer and a queued audio device.
func New(title string) (*Backend, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("sdl2: init: %w", err)
	}

	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		video.ScreenWidth*pixelScale, video.ScreenHeight*pixelScale,
		sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("sdl2: create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("sdl2: create renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING,
		video.ScreenWidth, video.ScreenHeight)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("sdl2: create texture: %w", err)
	}

	b := &Backend{window: window, renderer: renderer, texture: texture}

	spec := &sdl.AudioSpec{Freq: sampleRate, Format: sdl.AUDIO_S16SYS, Channels: 2, Samples: 1024}
	device, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		slog.Warn("sdl2: failed to open audio device", "error", err)
	} else {
		b.audioDevice = device
		sdl.PauseAudioDevice(device, false)
	}

	slog.Info("sdl2 backend initialized")
	return b, nil
}

func (b *Backend) PollInput() (joypad.State, bool) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			b.quit = true
		case *sdl.KeyboardEvent:
			b.handleKey(e)
		}
	}
	return b.state, b.quit
}

func (b *Backend) handleKey(e *sdl.KeyboardEvent) {
	pressed := e.Type == sdl.KEYDOWN
	switch e.Keysym.Sym {
	case sdl.K_UP:
		b.state.Up = pressed
	case sdl.K_DOWN:
		b.state.Down = pressed
	case sdl.K_LEFT:
		b.state.Left = pressed
	case sdl.K_RIGHT:
		b.state.Right = pressed
	case sdl.K_z:
		b.state.A = pressed
	case sdl.K_x:
		b.state.B = pressed
	case sdl.K_RETURN:
		b.state.Start = pressed
	case sdl.K_BACKSPACE:
		b.state.Select = pressed
	case sdl.K_ESCAPE:
		if pressed {
			b.quit = true
		}
	}
}

func (b *Backend) BlitFrame(frame *video.FrameBuffer) {
	if b.pixelBuffer == nil {
		b.pixelBuffer = make([]byte, video.FramebufferSize*4)
	}
	for i, px := range frame.Pixels() {
		b.pixelBuffer[i*4+0] = byte(px)
		b.pixelBuffer[i*4+1] = byte(px >> 8)
		b.pixelBuffer[i*4+2] = byte(px >> 16)
		b.pixelBuffer[i*4+3] = byte(px >> 24)
	}
	if err := b.texture.Update(nil, b.pixelBuffer, video.ScreenWidth*4); err != nil {
		slog.Warn("sdl2: failed to update texture", "error", err)
	}
}

func (b *Backend) QueueSamples(samples []int16) {
	if b.audioDevice == 0 || len(samples) == 0 {
		return
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	if err := sdl.QueueAudio(b.audioDevice, buf); err != nil {
		slog.Warn("sdl2: failed to queue audio", "error", err)
	}
}

func (b *Backend) Present() error {
	b.renderer.Clear()
	b.renderer.Copy(b.texture, nil, nil)
	b.renderer.Present()
	return nil
}

func (b *Backend) Close() error {
	if b.audioDevice != 0 {
		sdl.CloseAudioDevice(b.audioDevice)
	}
	b.texture.Destroy()
	b.renderer.Destroy()
	b.window.Destroy()
	sdl.Quit()
	return nil
}
