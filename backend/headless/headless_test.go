package headless_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finchwillow/dmgo/backend"
	"github.com/finchwillow/dmgo/backend/headless"
	"github.com/finchwillow/dmgo/video"
)

func TestHeadlessImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*headless.Backend)(nil)
}

func TestPollInputReturnsScriptedStateAndQuitSignal(t *testing.T) {
	h := headless.New()
	h.Input.A = true

	input, quit := h.PollInput()
	assert.True(t, input.A)
	assert.False(t, quit)

	h.QuitSignal = true
	_, quit = h.PollInput()
	assert.True(t, quit)
}

func TestPresentFlipsStagedFrameToLastFrame(t *testing.T) {
	h := headless.New()
	assert.Nil(t, h.LastFrame())

	frame := video.NewFrameBuffer()
	h.BlitFrame(frame)
	assert.Nil(t, h.LastFrame(), "BlitFrame alone must not flip the frame until Present")

	assert.NoError(t, h.Present())
	assert.Same(t, frame, h.LastFrame())
}

func TestQueueSamplesAccumulatesUntilDrained(t *testing.T) {
	h := headless.New()
	h.QueueSamples([]int16{1, 2})
	h.QueueSamples([]int16{3, 4})

	assert.Equal(t, []int16{1, 2, 3, 4}, h.DrainSamples())
	assert.Empty(t, h.DrainSamples(), "a second drain without new samples returns nothing")
}
